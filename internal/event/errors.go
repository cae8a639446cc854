package event

import (
	"errors"
	"fmt"
)

// Event construction errors.
var (
	// ErrInvalidEventType indicates a type outside the closed enumeration.
	ErrInvalidEventType = errors.New("event: invalid event type")

	// ErrInvalidTimestamp indicates a timestamp that does not parse as ISO-8601.
	ErrInvalidTimestamp = errors.New("event: invalid timestamp")
)

// MissingMetaFieldError reports a meta field required for the event type
// that was not supplied at construction.
type MissingMetaFieldError struct {
	Type  Type
	Field string
}

func (e *MissingMetaFieldError) Error() string {
	return fmt.Sprintf("event: %s meta missing required field %q", e.Type, e.Field)
}
