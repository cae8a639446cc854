package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// CanonicalBytes returns the deterministic serialization of the event with
// _hash excluded: compact JSON with object keys sorted lexicographically at
// every nesting level and every character above U+007E escaped, so the
// output is pure ASCII.
//
// This is the published hash-input form of the format (format version 0.1)
// and is frozen: two implementations serializing the same logical event
// must produce identical bytes, whatever order the fields were supplied in.
func (e *Event) CanonicalBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := canonicalValue(&buf, e.payload()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func canonicalValue(buf *bytes.Buffer, v any) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if vv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return canonicalString(buf, vv)
	case json.Number:
		// Stored literal, verbatim. Re-encoding through a float would
		// change bytes a peer implementation already hashed.
		buf.WriteString(vv.String())
	case int:
		buf.WriteString(strconv.Itoa(vv))
	case int64:
		buf.WriteString(strconv.FormatInt(vv, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(vv, 10))
	case float64:
		b, err := json.Marshal(vv)
		if err != nil {
			return err
		}
		buf.Write(b)
	case map[string]any:
		return canonicalObject(buf, vv)
	case []any:
		buf.WriteByte('[')
		for i, item := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("event: non-canonical value of type %T", v)
	}
	return nil
}

func canonicalObject(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := canonicalString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := canonicalValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// canonicalString writes s as an ASCII-only JSON string. Characters in
// 0x20..0x7e are emitted raw; everything else becomes a lowercase \uXXXX
// escape, with surrogate pairs above the basic multilingual plane. This is
// the exact escaping peer implementations of the format hash, so it cannot
// be delegated to encoding/json, which emits raw UTF-8.
func canonicalString(buf *bytes.Buffer, s string) error {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r >= 0x20 && r <= 0x7e:
			buf.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(buf, `\u%04x`, r)
		}
	}
	buf.WriteByte('"')
	return nil
}
