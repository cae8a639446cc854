// Package schema validates process-log documents against the published
// format constraints: top-level shape, event shape, and the per-type meta
// field table.
//
// Validation is structural only and independent of chain integrity; a log
// whose hashes are internally consistent can still be schema-invalid, and
// vice versa. All violations are collected rather than failing fast so a
// caller can report every problem at once.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"twff/internal/event"
)

//go:embed process-log.schema.json
var schemaJSON []byte

const schemaURL = "https://twff.dev/schema/process-log-v0.1.schema.json"

// Violation is one structural defect, located by a JSON pointer into the
// document.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("[%s] %s", path, v.Message)
}

// Validator validates process-log documents. Safe for concurrent use; the
// compiled schema is immutable.
type Validator struct {
	schema *jsonschema.Schema
	strict bool
}

// Option configures a Validator.
type Option func(*Validator)

// Strict makes the validator report meta fields undefined for an event's
// type and out-of-enum values for the closed meta enumerations. The
// default is lenient: unknown extras are permitted, matching the format's
// extensibility principle.
func Strict() Option {
	return func(v *Validator) { v.strict = true }
}

// New compiles the embedded process-log schema.
func New(opts ...Option) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	v := &Validator{schema: compiled}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate checks a raw process-log document. The returned error is
// non-nil only when the document is not JSON at all; an empty violation
// list with a nil error means structurally valid.
func (v *Validator) Validate(data []byte) ([]Violation, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}
	return v.ValidateDocument(doc), nil
}

// ValidateDocument checks an already-decoded document.
func (v *Validator) ValidateDocument(doc any) []Violation {
	var violations []Violation

	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			flatten(ve, &violations)
		} else {
			violations = append(violations, Violation{Message: err.Error()})
		}
	}

	if root, ok := doc.(map[string]any); ok {
		v.checkEvents(root, &violations)
	}

	return violations
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// flatten collects leaf causes of a validation error tree; intermediate
// nodes only repeat "doesn't validate with" summaries.
func flatten(ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{
			Path:    ve.InstanceLocation,
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		flatten(cause, out)
	}
}

// checkEvents applies the per-type meta table, which the generic schema
// cannot express without an unwieldy per-type branch.
func (v *Validator) checkEvents(root map[string]any, out *[]Violation) {
	rawEvents, ok := root["events"].([]any)
	if !ok {
		return
	}

	for i, raw := range rawEvents {
		ev, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		path := fmt.Sprintf("/events/%d", i)

		if ts, ok := ev["timestamp"].(string); ok {
			if _, err := event.ParseTimestamp(ts); err != nil {
				*out = append(*out, Violation{
					Path:    path + "/timestamp",
					Message: fmt.Sprintf("timestamp %q is not ISO-8601", ts),
				})
			}
		}

		typStr, _ := ev["type"].(string)
		typ := event.Type(typStr)
		if !typ.Valid() {
			// The enum keyword already reported this.
			continue
		}

		meta, _ := ev["meta"].(map[string]any)
		for _, field := range event.RequiredMeta(typ) {
			if _, present := meta[field]; !present {
				*out = append(*out, Violation{
					Path:    path + "/meta",
					Message: fmt.Sprintf("%s event missing required meta field %q", typ, field),
				})
			}
		}

		if !v.strict {
			continue
		}
		for field, value := range meta {
			if !event.KnownMeta(typ, field) {
				*out = append(*out, Violation{
					Path:    path + "/meta/" + field,
					Message: fmt.Sprintf("meta field %q not defined for %s events", field, typ),
				})
				continue
			}
			allowed := event.MetaEnum(typ, field)
			if len(allowed) == 0 {
				continue
			}
			str, _ := value.(string)
			if !contains(allowed, str) {
				*out = append(*out, Violation{
					Path: path + "/meta/" + field,
					Message: fmt.Sprintf("value %q not in {%s}",
						str, strings.Join(allowed, ", ")),
				})
			}
		}
	}
}

func contains(set []string, s string) bool {
	for _, item := range set {
		if item == s {
			return true
		}
	}
	return false
}
