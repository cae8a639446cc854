package container

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"twff/internal/schema"
	"twff/internal/session"
)

// CheckOffsets validates that every recorded position_start/position_end
// pair is a plausible character span in the content entry. The check is
// best-effort and advisory: content legitimately moves past recorded
// offsets in later edits, so an offset merely beyond a span the event once
// described is not an error: only negative, inverted, or out-of-bounds
// spans are reported.
func CheckOffsets(content []byte, s *session.Session) []schema.Violation {
	var violations []schema.Violation
	length := int64(utf8.RuneCount(content))

	for i, ev := range s.Events {
		start, hasStart := metaInt(ev.Meta, "position_start")
		end, hasEnd := metaInt(ev.Meta, "position_end")
		if !hasStart && !hasEnd {
			continue
		}
		path := fmt.Sprintf("/events/%d/meta", i)

		if hasStart {
			violations = appendBoundsViolation(violations,
				path+"/position_start", start, length)
		}
		if hasEnd {
			violations = appendBoundsViolation(violations,
				path+"/position_end", end, length)
		}
		if hasStart && hasEnd && end < start {
			violations = append(violations, schema.Violation{
				Path:    path + "/position_end",
				Message: fmt.Sprintf("span inverted: end %d before start %d", end, start),
			})
		}
	}
	return violations
}

// Each offset must satisfy 0 <= offset <= length on its own, whether or not
// its partner field is present.
func appendBoundsViolation(violations []schema.Violation, path string, offset, length int64) []schema.Violation {
	switch {
	case offset < 0:
		return append(violations, schema.Violation{
			Path:    path,
			Message: fmt.Sprintf("negative offset %d", offset),
		})
	case offset > length:
		return append(violations, schema.Violation{
			Path:    path,
			Message: fmt.Sprintf("offset %d beyond content length %d", offset, length),
		})
	}
	return violations
}

// metaInt reads an integer meta value across the representations it may
// arrive in: json.Number from a decoded log, or native ints from an
// in-memory session.
func metaInt(meta map[string]any, key string) (int64, bool) {
	v, ok := meta[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
