// Package verify orchestrates the checks over a process log or container
// and produces the externally consumed verification report.
//
// Schema validation and chain verification are independent axes: a log can
// be schema-invalid with an intact chain, or schema-valid with a broken
// one. The report captures both, plus advisory offset checks and optional
// signature verification. Only structural errors, an unreadable archive or
// unparsable JSON, prevent a report from being produced at all.
package verify

import (
	"errors"
	"fmt"

	"twff/internal/container"
	"twff/internal/schema"
	"twff/internal/session"
	"twff/internal/signer"
)

// Report is the complete verification result.
type Report struct {
	SchemaValid bool               `json:"schema_valid"`
	ChainIntact bool               `json:"chain_intact"`
	EventCount  int                `json:"event_count"`
	Violations  []schema.Violation `json:"violations"`

	// Tip is the verified chain head, set only when the chain is intact.
	Tip string `json:"tip,omitempty"`

	// ContainerDigest identifies the verified container bytes; empty for
	// bare logs.
	ContainerDigest string `json:"container_digest,omitempty"`

	// SignatureValid is set only when a signatures entry was present and
	// checked.
	SignatureValid *bool `json:"signature_valid,omitempty"`
}

// Clean reports whether every check passed.
func (r *Report) Clean() bool {
	return r.SchemaValid && r.ChainIntact && len(r.Violations) == 0
}

// Options configure a verification run.
type Options struct {
	// Strict enables strict meta validation (unknown fields and
	// out-of-enum values are violations).
	Strict bool

	// CheckOffsets enables the advisory position-offset check. Only
	// meaningful for containers, where content is available.
	CheckOffsets bool

	// CheckSignatures verifies META-INF/signatures.xml when present.
	CheckSignatures bool
}

// Log verifies a bare process-log document. A non-nil error means the
// document was unreadable and no report exists.
func Log(data []byte, opts Options) (*Report, error) {
	validator, err := newValidator(opts)
	if err != nil {
		return nil, err
	}

	violations, err := validator.Validate(data)
	if err != nil {
		return nil, err
	}

	sess, err := session.Decode(data)
	if err != nil {
		// Validate parsed it, so this is a shape mismatch against the
		// typed model, e.g. events as a number. The schema violations
		// above already describe it; report without chain results.
		rep := &Report{Violations: violations}
		if len(violations) == 0 {
			return nil, err
		}
		return rep, nil
	}

	return buildReport(sess, violations), nil
}

// Container verifies a packed .twff container: schema, chain, offsets, and
// optionally signatures. A non-nil error means the archive or its log was
// structurally unreadable.
func Container(data []byte, opts Options) (*Report, error) {
	validator, err := newValidator(opts)
	if err != nil {
		return nil, err
	}

	archive, err := container.Unpack(data)
	if err != nil {
		return nil, err
	}

	violations, err := validator.Validate(archive.RawLog)
	if err != nil {
		// Unpack already parsed the log, so this cannot normally happen.
		return nil, err
	}
	rep := buildReport(archive.Session, violations)
	rep.ContainerDigest = container.Digest(data)

	if opts.CheckOffsets {
		rep.Violations = append(rep.Violations,
			container.CheckOffsets(archive.Content, archive.Session)...)
	}

	if opts.CheckSignatures && archive.Signatures != nil {
		valid := checkSignatures(archive, rep)
		rep.SignatureValid = &valid
	}

	return rep, nil
}

func newValidator(opts Options) (*schema.Validator, error) {
	var schemaOpts []schema.Option
	if opts.Strict {
		schemaOpts = append(schemaOpts, schema.Strict())
	}
	return schema.New(schemaOpts...)
}

// buildReport runs the chain checks over a decoded session and merges them
// with the schema violations.
func buildReport(sess *session.Session, violations []schema.Violation) *Report {
	rep := &Report{
		SchemaValid: len(violations) == 0,
		Violations:  violations,
		EventCount:  len(sess.Events),
	}

	// Ordering is a document invariant independent of the hashes.
	for _, idx := range sess.OutOfOrder() {
		rep.SchemaValid = false
		rep.Violations = append(rep.Violations, schema.Violation{
			Path:    fmt.Sprintf("/events/%d/timestamp", idx),
			Message: "timestamp earlier than predecessor",
		})
	}

	result, err := sess.Verify()
	if err != nil {
		rep.Violations = append(rep.Violations, chainViolation(err))
		return rep
	}
	rep.ChainIntact = true
	rep.Tip = result.Tip
	return rep
}

func chainViolation(err error) schema.Violation {
	var breakErr *session.ChainBreakError
	if errors.As(err, &breakErr) {
		return schema.Violation{
			Path: fmt.Sprintf("/events/%d/_hash", breakErr.Index),
			Message: fmt.Sprintf("chain broken: stored %.16s… does not match recomputed %.16s…",
				breakErr.Stored, breakErr.Expected),
		}
	}
	var integrityErr *session.IntegrityMismatchError
	if errors.As(err, &integrityErr) {
		return schema.Violation{
			Path:    "/_integrity/" + integrityErr.Field,
			Message: err.Error(),
		}
	}
	if errors.Is(err, session.ErrChainTruncated) {
		return schema.Violation{Path: "/events", Message: "chain truncated: no events"}
	}
	return schema.Violation{Path: "/events", Message: err.Error()}
}

func checkSignatures(archive *container.Archive, rep *Report) bool {
	doc, err := signer.Parse(archive.Signatures)
	if err != nil {
		rep.Violations = append(rep.Violations, schema.Violation{
			Path: "/" + container.SignaturesPath, Message: err.Error(),
		})
		return false
	}
	if !rep.ChainIntact {
		rep.Violations = append(rep.Violations, schema.Violation{
			Path:    "/" + container.SignaturesPath,
			Message: "signature not checked: chain is not intact",
		})
		return false
	}
	if err := signer.Verify(doc, rep.Tip); err != nil {
		rep.Violations = append(rep.Violations, schema.Violation{
			Path: "/" + container.SignaturesPath, Message: err.Error(),
		})
		return false
	}
	return true
}
