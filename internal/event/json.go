package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON emits the event with its published fields first and any
// preserved extra fields after. Key order in the stored log is cosmetic;
// the chain digest is computed over the canonical form, not this one.
func (e *Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(e.Extra))
	out["timestamp"] = e.Timestamp
	out["type"] = string(e.Type)
	if e.Meta != nil {
		out["meta"] = e.Meta
	}
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.Hash != "" {
		out["_hash"] = e.Hash
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stored event, preserving fields outside the
// published set in Extra so that re-serialization and re-hashing see the
// exact logical document that was signed. Numbers decode as json.Number to
// keep their stored literal form.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*e = Event{}
	for k, v := range raw {
		switch k {
		case "timestamp":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("event: timestamp is %T, want string", v)
			}
			e.Timestamp = s
		case "type":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("event: type is %T, want string", v)
			}
			e.Type = Type(s)
		case "meta":
			m, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("event: meta is %T, want object", v)
			}
			e.Meta = m
		case "_hash":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("event: _hash is %T, want string", v)
			}
			e.Hash = s
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]any)
			}
			e.Extra[k] = v
		}
	}
	return nil
}
