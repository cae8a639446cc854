package session

import (
	"encoding/json"
	"fmt"
)

// Decode parses a process-log JSON document into a Session. Event-level
// numbers keep their stored literal form so that recomputed chain digests
// match what the producer hashed.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode process log: %w", err)
	}
	return &s, nil
}

// Encode serializes the session as indented JSON, the on-disk form of
// meta/process-log.json. Encoding is deterministic for a given session:
// struct fields emit in declaration order and event maps sort their keys.
func (s *Session) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("session: encode process log: %w", err)
	}
	return append(data, '\n'), nil
}
