package schema

import (
	"strings"
	"testing"
)

const validLog = `{
  "version": "0.1",
  "session_id": "0f1e2d3c-0000-4000-8000-000000000000",
  "user_id": "writer-1",
  "start_time": "2025-01-02T10:00:00Z",
  "end_time": "2025-01-02T10:02:30Z",
  "content_source": "content/document.xhtml",
  "events": [
    {"timestamp": "2025-01-02T10:00:00Z", "type": "session_start"},
    {"timestamp": "2025-01-02T10:00:01Z", "type": "edit",
     "meta": {"char_delta": 15, "source": "human"}},
    {"timestamp": "2025-01-02T10:02:30Z", "type": "session_end"}
  ]
}`

func mustValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	v, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestValidLogHasNoViolations(t *testing.T) {
	v := mustValidator(t)
	violations, err := v.Validate([]byte(validLog))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %v, want none", violations)
	}
}

func TestInvalidJSONIsStructural(t *testing.T) {
	v := mustValidator(t)
	if _, err := v.Validate([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMissingTopLevelFields(t *testing.T) {
	v := mustValidator(t)
	violations, err := v.Validate([]byte(`{"user_id": "writer-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	// The engine reports required properties as one violation at the root
	// naming every absent field.
	if len(violations) == 0 {
		t.Fatal("no violations for missing version/session_id/events")
	}
	joined := ""
	for _, v := range violations {
		joined += v.Message + " "
	}
	for _, field := range []string{"version", "session_id", "events"} {
		if !strings.Contains(joined, field) {
			t.Errorf("violations %v do not mention %q", violations, field)
		}
	}
}

func TestWrongScalarType(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": 1, "session_id": "s", "events": []}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/version") {
		t.Fatalf("violations = %v, want one at /version", violations)
	}
}

func TestUnknownEventType(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "telepathy"}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/events/0/type") {
		t.Fatalf("violations = %v, want one at /events/0/type", violations)
	}
}

func TestMissingRequiredMetaField(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "ai_interaction",
       "meta": {"interaction_type": "draft", "model": "m", "output_length": 10}}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %v, want exactly one", violations)
	}
	if violations[0].Path != "/events/0/meta" ||
		!strings.Contains(violations[0].Message, "acceptance") {
		t.Errorf("violation = %v, want missing acceptance at /events/0/meta", violations[0])
	}
}

func TestBadTimestampReported(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "not-a-time", "type": "session_start"}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/events/0/timestamp") {
		t.Fatalf("violations = %v, want one at /events/0/timestamp", violations)
	}
}

func TestLenientAllowsUnknownMeta(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "edit",
       "meta": {"char_delta": 1, "source": "human", "experimental": true}}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Fatalf("lenient mode reported %v", violations)
	}
}

func TestStrictRejectsUnknownMeta(t *testing.T) {
	v := mustValidator(t, Strict())
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "edit",
       "meta": {"char_delta": 1, "source": "human", "experimental": true}}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/events/0/meta/experimental") {
		t.Fatalf("violations = %v, want one at /events/0/meta/experimental", violations)
	}
}

func TestStrictRejectsOutOfEnumValue(t *testing.T) {
	v := mustValidator(t, Strict())
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "edit",
       "meta": {"char_delta": 1, "source": "divine_inspiration"}}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/events/0/meta/source") {
		t.Fatalf("violations = %v, want one at /events/0/meta/source", violations)
	}

	// The same value passes in lenient mode.
	lenient := mustValidator(t)
	violations, err = lenient.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Fatalf("lenient mode reported %v", violations)
	}
}

func TestMalformedHashPattern(t *testing.T) {
	v := mustValidator(t)
	doc := `{"version": "0.1", "session_id": "s", "events": [
      {"timestamp": "2025-01-02T10:00:00Z", "type": "session_start",
       "_hash": "not-hex"}
    ]}`
	violations, err := v.Validate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !hasViolationAt(violations, "/events/0/_hash") {
		t.Fatalf("violations = %v, want one at /events/0/_hash", violations)
	}
}

func hasViolationAt(violations []Violation, path string) bool {
	for _, v := range violations {
		if v.Path == path {
			return true
		}
	}
	return false
}
