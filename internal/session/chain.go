package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"twff/internal/event"
)

// HashEvent computes the chained digest for one event: SHA-256 over the
// canonical serialization joined with the previous hash and the session ID.
// Binding the session ID into every link means a log cannot be re-keyed to
// another session without breaking its chain.
func HashEvent(ev *event.Event, previousHash, sessionID string) (string, error) {
	canonical, err := ev.CanonicalBytes()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte("|"))
	h.Write([]byte(previousHash))
	h.Write([]byte("|"))
	h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Append chains a new event onto the session. It fails with ErrChainClosed
// after a terminal session_end and ErrNonMonotonicTimestamp if the event
// predates the current head; on failure the session is unchanged. On
// success the event's _hash is computed and stored and the chain tip
// advances to it.
func (s *Session) Append(ev *event.Event) error {
	if s.Closed() {
		return ErrChainClosed
	}

	ts, err := ev.Time()
	if err != nil {
		return err
	}
	if n := len(s.Events); n > 0 {
		last, err := s.Events[n-1].Time()
		if err != nil {
			return fmt.Errorf("session: corrupt head timestamp: %w", err)
		}
		if ts.Before(last) {
			return fmt.Errorf("%w: %s before %s",
				ErrNonMonotonicTimestamp, ev.Timestamp, s.Events[n-1].Timestamp)
		}
	}

	hash, err := HashEvent(ev, s.Tip(), s.SessionID)
	if err != nil {
		return err
	}
	ev.Hash = hash
	s.Events = append(s.Events, ev)
	return nil
}

// VerifyResult summarizes a successful chain verification.
type VerifyResult struct {
	EventCount int    `json:"event_count"`
	Tip        string `json:"tip"`
}

// Verify recomputes the chain from genesis and compares every stored hash.
// It is a pure function of the session contents: no I/O, no mutation. It
// fails with ErrChainTruncated for an empty log and ChainBreakError at the
// first index whose stored hash disagrees; when the _integrity trailer is
// present its head hash and length are cross-checked as well.
func (s *Session) Verify() (*VerifyResult, error) {
	if len(s.Events) == 0 {
		return nil, ErrChainTruncated
	}

	prev := GenesisHash
	for i, ev := range s.Events {
		expected, err := HashEvent(ev, prev, s.SessionID)
		if err != nil {
			return nil, fmt.Errorf("session: event %d: %w", i, err)
		}
		if ev.Hash != expected {
			return nil, &ChainBreakError{Index: i, Stored: ev.Hash, Expected: expected}
		}
		prev = expected
	}

	if s.Integrity != nil {
		if s.Integrity.HeadHash != prev {
			return nil, &IntegrityMismatchError{
				Field: "head_hash", Stored: s.Integrity.HeadHash, Expected: prev,
			}
		}
		if s.Integrity.ChainLength != len(s.Events) {
			return nil, &IntegrityMismatchError{
				Field:    "chain_length",
				Stored:   fmt.Sprint(s.Integrity.ChainLength),
				Expected: fmt.Sprint(len(s.Events)),
			}
		}
	}

	return &VerifyResult{EventCount: len(s.Events), Tip: prev}, nil
}

// BrokenLinks recomputes the chain and returns every index whose stored
// hash disagrees with the recomputation. Unlike Verify it does not stop at
// the first break: each recomputation feeds the next link its expected
// digest, so a single tampered event surfaces here as that index plus every
// index after it. Used for reporting and for previewing what Repair would
// rewrite.
func (s *Session) BrokenLinks() []int {
	var broken []int
	prev := GenesisHash
	for i, ev := range s.Events {
		expected, err := HashEvent(ev, prev, s.SessionID)
		if err != nil {
			broken = append(broken, i)
			continue
		}
		if ev.Hash != expected {
			broken = append(broken, i)
		}
		prev = expected
	}
	return broken
}

// Repair recomputes and overwrites every _hash from genesis forward and
// restamps the _integrity trailer. This is an explicit, audit-breaking
// operation for bootstrapping legacy logs that predate chaining; it is
// never performed as part of Verify, and callers must surface it as a
// repair, not a verification. Repair is idempotent.
func (s *Session) Repair() (*VerifyResult, error) {
	prev := GenesisHash
	for i, ev := range s.Events {
		hash, err := HashEvent(ev, prev, s.SessionID)
		if err != nil {
			return nil, fmt.Errorf("session: event %d: %w", i, err)
		}
		ev.Hash = hash
		prev = hash
	}
	s.stampIntegrity()
	return &VerifyResult{EventCount: len(s.Events), Tip: prev}, nil
}
