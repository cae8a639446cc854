package session

import (
	"errors"
	"fmt"
)

// Chain integrity errors.
var (
	// ErrChainClosed indicates an append after a terminal session_end.
	ErrChainClosed = errors.New("session: chain closed by session_end")

	// ErrNonMonotonicTimestamp indicates an append earlier than the last
	// chained event.
	ErrNonMonotonicTimestamp = errors.New("session: non-monotonic timestamp")

	// ErrChainTruncated indicates verification of a session with no events.
	ErrChainTruncated = errors.New("session: chain truncated (no events)")
)

// ChainBreakError reports the first index whose stored hash does not match
// the recomputed digest. Once one link is broken every later digest is
// meaningless, so verification stops here.
type ChainBreakError struct {
	Index    int
	Stored   string
	Expected string
}

func (e *ChainBreakError) Error() string {
	return fmt.Sprintf("session: chain broken at event %d: stored %.16s… want %.16s…",
		e.Index, e.Stored, e.Expected)
}

// IntegrityMismatchError reports a _integrity trailer that disagrees with
// the recomputed chain.
type IntegrityMismatchError struct {
	Field    string
	Stored   string
	Expected string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("session: _integrity.%s mismatch: stored %q want %q",
		e.Field, e.Stored, e.Expected)
}
