// Package event defines the typed authorship event model for TWFF process
// logs.
//
// An event records one observable step of document composition: a typed
// edit, a paste, an AI interaction, a focus change, or a periodic
// checkpoint. Events are immutable once hashed into a session chain; the
// canonical serialization in this package is the hash input for the chain
// and must never change within a deployed format version.
package event

import (
	"fmt"
	"sort"
	"time"
)

// Type identifies the kind of authorship event.
type Type string

// The closed event type enumeration.
const (
	SessionStart    Type = "session_start"
	SessionEnd      Type = "session_end"
	Edit            Type = "edit"
	Paste           Type = "paste"
	AIInteraction   Type = "ai_interaction"
	ChatInteraction Type = "chat_interaction"
	FocusChange     Type = "focus_change"
	Checkpoint      Type = "checkpoint"
)

// Types lists every valid event type in declaration order.
func Types() []Type {
	return []Type{
		SessionStart, SessionEnd, Edit, Paste,
		AIInteraction, ChatInteraction, FocusChange, Checkpoint,
	}
}

// Valid reports whether t is a member of the closed enumeration.
func (t Type) Valid() bool {
	switch t {
	case SessionStart, SessionEnd, Edit, Paste,
		AIInteraction, ChatInteraction, FocusChange, Checkpoint:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Timestamp layouts accepted on input. RFC 3339 is what this
// implementation emits; the zone-less forms appear in logs produced by
// older exporters.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp string. Zone-less inputs are
// interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			if ts.Location() == time.Local {
				ts = ts.UTC()
			}
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// Event is a single authorship event. Timestamp is kept as the stored
// string: the chain hash covers the exact bytes that appear in the log, so
// re-formatting a timestamp would break verification of existing chains.
//
// Extra holds event-level JSON fields outside the published set. They are
// preserved through round-trips and participate in hashing, exactly as the
// published chain algorithm requires (every field except _hash is hash
// input).
type Event struct {
	Timestamp string
	Type      Type
	Meta      map[string]any
	Hash      string
	Extra     map[string]any
}

// New constructs a validated Event. It fails with ErrInvalidEventType for a
// type outside the enumeration, ErrInvalidTimestamp for an unparsable
// timestamp, and MissingMetaFieldError naming the first absent field
// required for the type. The meta map is copied; the caller keeps no handle
// into the event.
func New(typ Type, timestamp string, meta map[string]any) (*Event, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, typ)
	}
	if _, err := ParseTimestamp(timestamp); err != nil {
		return nil, err
	}
	for _, field := range RequiredMeta(typ) {
		if _, ok := meta[field]; !ok {
			return nil, &MissingMetaFieldError{Type: typ, Field: field}
		}
	}

	ev := &Event{
		Timestamp: timestamp,
		Type:      typ,
	}
	if len(meta) > 0 {
		ev.Meta = make(map[string]any, len(meta))
		for k, v := range meta {
			ev.Meta[k] = v
		}
	}
	return ev, nil
}

// Time returns the parsed timestamp. Events held in a Session have always
// passed ParseTimestamp, either in New or during decode.
func (e *Event) Time() (time.Time, error) {
	return ParseTimestamp(e.Timestamp)
}

// Clone returns a deep copy. Used by callers that must not alias a chained
// event's meta.
func (e *Event) Clone() *Event {
	c := &Event{
		Timestamp: e.Timestamp,
		Type:      e.Type,
		Hash:      e.Hash,
	}
	if e.Meta != nil {
		c.Meta = cloneMap(e.Meta)
	}
	if e.Extra != nil {
		c.Extra = cloneMap(e.Extra)
	}
	return c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = cloneMap(vv)
		case []any:
			s := make([]any, len(vv))
			copy(s, vv)
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

// payload returns the event as a generic map with _hash excluded, the form
// the canonical serialization and therefore the chain digest are computed
// over.
func (e *Event) payload() map[string]any {
	p := map[string]any{
		"timestamp": e.Timestamp,
		"type":      string(e.Type),
	}
	if e.Meta != nil {
		p["meta"] = e.Meta
	}
	for k, v := range e.Extra {
		if k == "_hash" {
			continue
		}
		p[k] = v
	}
	return p
}

// MetaKeys returns the event's meta keys sorted, for stable reporting.
func (e *Event) MetaKeys() []string {
	keys := make([]string, 0, len(e.Meta))
	for k := range e.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
