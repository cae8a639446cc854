// Package session implements the append-only, hash-chained process log of
// one writing session.
//
// Every appended event is bound to its predecessor and to the session
// identity by a SHA-256 digest over the event's canonical serialization:
//
//	_hash = hex(sha256(canonical(event) + "|" + previous_hash + "|" + session_id))
//
// The first event's previous hash is the empty string. The digest
// algorithm, genesis value, and canonical form are fixed constants of
// format version 0.1 and never change within a deployed version.
package session

import (
	"time"

	"github.com/google/uuid"

	"twff/internal/event"
)

// GenesisHash is the previous-hash input for the first event in a chain.
const GenesisHash = ""

// Version is the process-log format version this package writes.
const Version = "0.1"

// ChainAlgorithm names the chain construction in the _integrity trailer.
const ChainAlgorithm = "SHA-256-CHAIN"

// Integrity is the optional trailer anchoring the chain head in the log
// document itself.
type Integrity struct {
	Algorithm   string `json:"algorithm"`
	ChainLength int    `json:"chain_length"`
	HeadHash    string `json:"head_hash"`
	SessionID   string `json:"session_id"`
	Note        string `json:"note,omitempty"`
}

// Session is one writing session's process log. Events are exclusively
// owned by the session and are only ever appended, never rewritten;
// Repair is the single documented exception.
type Session struct {
	Version       string         `json:"version"`
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	StartTime     string         `json:"start_time,omitempty"`
	EndTime       string         `json:"end_time,omitempty"`
	ContentSource string         `json:"content_source,omitempty"`
	Events        []*event.Event `json:"events"`
	Integrity     *Integrity     `json:"_integrity,omitempty"`
}

// New creates an open session with a fresh session ID and a session_start
// event at now.
func New(userID, contentSource string) (*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	s := &Session{
		Version:       Version,
		SessionID:     uuid.NewString(),
		UserID:        userID,
		StartTime:     now,
		ContentSource: contentSource,
	}
	start, err := event.New(event.SessionStart, now, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Append(start); err != nil {
		return nil, err
	}
	return s, nil
}

// Closed reports whether the session has a terminal session_end event,
// after which no further appends are accepted.
func (s *Session) Closed() bool {
	if len(s.Events) == 0 {
		return false
	}
	return s.Events[len(s.Events)-1].Type == event.SessionEnd
}

// Tip returns the current chain head digest, or GenesisHash for an empty
// session.
func (s *Session) Tip() string {
	if len(s.Events) == 0 {
		return GenesisHash
	}
	return s.Events[len(s.Events)-1].Hash
}

// Finalize appends session_end at the given time, sets end_time, and
// writes the _integrity trailer. The session accepts no events afterwards.
func (s *Session) Finalize(at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	end, err := event.New(event.SessionEnd, ts, nil)
	if err != nil {
		return err
	}
	if err := s.Append(end); err != nil {
		return err
	}
	s.EndTime = ts
	s.stampIntegrity()
	return nil
}

func (s *Session) stampIntegrity() {
	s.Integrity = &Integrity{
		Algorithm:   ChainAlgorithm,
		ChainLength: len(s.Events),
		HeadHash:    s.Tip(),
		SessionID:   s.SessionID,
	}
}

// OutOfOrder returns the indices of events whose timestamp is earlier than
// their predecessor's, or whose timestamp does not parse at all. Sessions
// built through Append never contain any; logs from other producers may.
func (s *Session) OutOfOrder() []int {
	var bad []int
	var prev time.Time
	for i, ev := range s.Events {
		ts, err := ev.Time()
		if err != nil {
			bad = append(bad, i)
			continue
		}
		if i > 0 && ts.Before(prev) {
			bad = append(bad, i)
		}
		prev = ts
	}
	return bad
}
