package registry

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDefaults(t *testing.T) {
	reg, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}

	for _, name := range []string{"ai_generated", "ai_paraphrase", "external_paste", "quotation", "checkpoint"} {
		ann, ok := reg.Lookup(name)
		if !ok {
			t.Errorf("%s missing from defaults", name)
			continue
		}
		if ann.Label == "" || ann.Color == "" || ann.Kind == "" {
			t.Errorf("%s incomplete: %+v", name, ann)
		}
	}

	ai, _ := reg.Lookup("ai_generated")
	if ai.Kind != "ai" {
		t.Errorf("ai_generated kind = %s, want ai", ai.Kind)
	}
	if ai.Disclosure == "" {
		t.Error("ai_generated should carry a disclosure sentence")
	}
}

func TestLookupUnknown(t *testing.T) {
	reg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Lookup("no_such_annotation"); ok {
		t.Error("unknown name resolved")
	}
}

func TestNamesSorted(t *testing.T) {
	reg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	names := reg.Names()
	if len(names) == 0 {
		t.Fatal("no names")
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
}

func TestLoadFileReplacesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.yaml")
	body := `
house_style:
  label: "House style"
  color: "#336699"
  kind: "process"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := reg.Lookup("house_style"); !ok {
		t.Error("loaded annotation missing")
	}
	if _, ok := reg.Lookup("ai_generated"); ok {
		t.Error("defaults leaked into a loaded registry")
	}
}

func TestLoadFileRejectsMissingLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.yaml")
	if err := os.WriteFile(path, []byte("bad:\n  color: \"#fff\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("annotation without label accepted")
	}
}
