// Package registry is the display-attribute lookup table for annotation
// types: the single source of truth a UI consults for labels and colors.
//
// It deliberately lives outside internal/: the integrity engine never
// imports it, so presentation metadata can change without touching chain or
// schema semantics.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed annotations.yaml
var defaultsYAML []byte

// Annotation describes how one event or annotation type is displayed.
type Annotation struct {
	// Label is the human-readable name.
	Label string `yaml:"label"`
	// Color is a CSS color for highlighting.
	Color string `yaml:"color"`
	// Kind groups annotations for toolbars: "ai", "source", "process".
	Kind string `yaml:"kind"`
	// Disclosure is the sentence shown when the annotation is expanded.
	Disclosure string `yaml:"disclosure,omitempty"`
}

// Registry maps annotation type names to display attributes.
type Registry struct {
	annotations map[string]Annotation
}

// Defaults returns the embedded registry.
func Defaults() (*Registry, error) {
	return parse(defaultsYAML)
}

// LoadFile reads a registry from a YAML file, replacing the defaults
// wholesale; display policy is not merged across sources.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var annotations map[string]Annotation
	if err := yaml.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}
	for name, ann := range annotations {
		if ann.Label == "" {
			return nil, fmt.Errorf("registry: annotation %q has no label", name)
		}
	}
	return &Registry{annotations: annotations}, nil
}

// Lookup returns the display attributes for a type name.
func (r *Registry) Lookup(name string) (Annotation, bool) {
	ann, ok := r.annotations[name]
	return ann, ok
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.annotations))
	for name := range r.annotations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
