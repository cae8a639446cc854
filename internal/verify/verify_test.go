package verify

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"twff/internal/container"
	"twff/internal/event"
	"twff/internal/schema"
	"twff/internal/session"
	"twff/internal/signer"
)

func cleanSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("writer-1", "content/document.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	edit, err := event.New(event.Edit, "2125-03-01T09:00:01Z",
		map[string]any{"char_delta": 42, "source": "human"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(edit); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(time.Date(2125, 3, 1, 9, 30, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	return s
}

func encode(t *testing.T, s *session.Session) []byte {
	t.Helper()
	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestLogClean(t *testing.T) {
	rep, err := Log(encode(t, cleanSession(t)), Options{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if !rep.Clean() {
		t.Fatalf("report not clean: %+v", rep)
	}
	if !rep.SchemaValid || !rep.ChainIntact {
		t.Errorf("schema=%v chain=%v, want both true", rep.SchemaValid, rep.ChainIntact)
	}
	if rep.EventCount != 3 {
		t.Errorf("event count = %d, want 3", rep.EventCount)
	}
	if len(rep.Tip) != 64 {
		t.Errorf("tip = %q, want a 64-char digest", rep.Tip)
	}
	if rep.ContainerDigest != "" {
		t.Error("bare log should not report a container digest")
	}
}

// Schema validation and chain verification are independent: a log whose
// ai_interaction event lacks the required acceptance field still carries a
// valid hash chain, and the report says so on both axes.
func TestSchemaAndChainIndependent(t *testing.T) {
	s, err := session.New("writer-1", "content/document.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	// Bypass constructor validation to record an incomplete event; the
	// chain hashes whatever was stored.
	ai := &event.Event{
		Timestamp: "2125-03-01T09:00:01Z",
		Type:      event.AIInteraction,
		Meta: map[string]any{
			"interaction_type": "draft",
			"model":            "coauthor-lm",
			"output_length":    120,
		},
	}
	if err := s.Append(ai); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(time.Date(2125, 3, 1, 9, 1, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	rep, err := Log(encode(t, s), Options{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if rep.SchemaValid {
		t.Error("schema should fail: acceptance is required for ai_interaction")
	}
	if !rep.ChainIntact {
		t.Error("chain should still verify")
	}
	if len(rep.Violations) != 1 {
		t.Fatalf("violations = %v, want exactly one", rep.Violations)
	}
	if rep.Violations[0].Path != "/events/1/meta" {
		t.Errorf("violation path = %s, want /events/1/meta", rep.Violations[0].Path)
	}
}

func TestLogTamperedChain(t *testing.T) {
	s := cleanSession(t)
	s.Events[1].Meta["char_delta"] = 43

	rep, err := Log(encode(t, s), Options{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if !rep.SchemaValid {
		t.Error("schema should pass: the tampered log is still well-formed")
	}
	if rep.ChainIntact {
		t.Error("chain should be broken")
	}
	if rep.Tip != "" {
		t.Error("tip must be empty for a broken chain")
	}
	found := false
	for _, v := range rep.Violations {
		if v.Path == "/events/1/_hash" {
			found = true
		}
	}
	if !found {
		t.Errorf("no violation at /events/1/_hash: %v", rep.Violations)
	}
}

func TestLogOutOfOrderTimestamps(t *testing.T) {
	s := cleanSession(t)
	// Rewind one timestamp behind the session start, then re-chain so only
	// ordering is wrong.
	s.Events[1].Timestamp = "2020-01-01T00:00:00Z"
	if _, err := s.Repair(); err != nil {
		t.Fatal(err)
	}

	rep, err := Log(encode(t, s), Options{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if rep.SchemaValid {
		t.Error("ordering violation should fail the schema axis")
	}
	if !rep.ChainIntact {
		t.Error("repaired chain should verify")
	}
	found := false
	for _, v := range rep.Violations {
		if v.Path == "/events/1/timestamp" && strings.Contains(v.Message, "earlier") {
			found = true
		}
	}
	if !found {
		t.Errorf("no ordering violation at /events/1/timestamp: %v", rep.Violations)
	}
}

func TestLogStructuralError(t *testing.T) {
	if _, err := Log([]byte("{not json"), Options{}); err == nil {
		t.Fatal("unparsable input must yield an error, not a report")
	}
}

func TestContainerClean(t *testing.T) {
	s := cleanSession(t)
	v, err := schema.New()
	if err != nil {
		t.Fatal(err)
	}
	packed, err := container.Pack(&container.Archive{
		Content: []byte("<html><body>hello</body></html>"),
		Session: s,
	}, v)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := Container(packed, Options{CheckOffsets: true})
	if err != nil {
		t.Fatalf("Container: %v", err)
	}
	if !rep.Clean() {
		t.Fatalf("report not clean: %+v", rep)
	}
	if rep.ContainerDigest != container.Digest(packed) {
		t.Error("container digest does not match the archive bytes")
	}
	if rep.SignatureValid != nil {
		t.Error("signature result set without a signatures entry")
	}
}

func TestContainerSignatures(t *testing.T) {
	s := cleanSession(t)
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	sign := func(headHash string) []byte {
		doc, err := signer.Sign(priv, headHash, time.Date(2125, 3, 1, 10, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatal(err)
		}
		return doc
	}

	v, err := schema.New()
	if err != nil {
		t.Fatal(err)
	}
	pack := func(sigs []byte) []byte {
		packed, err := container.Pack(&container.Archive{
			Content:    []byte("<html/>"),
			Session:    s,
			Signatures: sigs,
		}, v)
		if err != nil {
			t.Fatal(err)
		}
		return packed
	}

	rep, err := Container(pack(sign(s.Tip())), Options{CheckSignatures: true})
	if err != nil {
		t.Fatal(err)
	}
	if rep.SignatureValid == nil || !*rep.SignatureValid {
		t.Fatalf("valid signature not accepted: %+v", rep.Violations)
	}
	if !rep.Clean() {
		t.Errorf("report not clean: %+v", rep)
	}

	rep, err = Container(pack(sign(strings.Repeat("ab", 32))), Options{CheckSignatures: true})
	if err != nil {
		t.Fatal(err)
	}
	if rep.SignatureValid == nil || *rep.SignatureValid {
		t.Error("signature over the wrong head hash accepted")
	}
	if rep.Clean() {
		t.Error("report clean despite signature failure")
	}
}

func TestReportGeneratorText(t *testing.T) {
	rep := &Report{
		SchemaValid: true,
		ChainIntact: true,
		EventCount:  3,
		Tip:         strings.Repeat("ab", 32),
	}

	var buf bytes.Buffer
	if err := NewReportGenerator(FormatText).Generate(rep, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Result: PASS") {
		t.Errorf("missing PASS line:\n%s", out)
	}
	if !strings.Contains(out, "Chain tip:   abababababababab…") {
		t.Errorf("tip not truncated:\n%s", out)
	}

	buf.Reset()
	if err := NewReportGenerator(FormatText).WithVerbose(true).Generate(rep, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), strings.Repeat("ab", 32)) {
		t.Error("verbose output should carry the full tip")
	}

	buf.Reset()
	rep.ChainIntact = false
	rep.Violations = []schema.Violation{{Path: "/events/1/_hash", Message: "chain broken"}}
	if err := NewReportGenerator(FormatText).Generate(rep, &buf); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	if !strings.Contains(out, "Result: FAIL") || !strings.Contains(out, "[/events/1/_hash]") {
		t.Errorf("failure output incomplete:\n%s", out)
	}
}
