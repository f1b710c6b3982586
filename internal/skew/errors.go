package skew

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel matched by every *InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a malformed buffer or detection parameter.
//
// It is returned before any voting begins and indicates a caller defect;
// retrying with the same input will fail the same way.
type InvalidInputError struct {
	// Field names the offending argument (e.g. "buffer", "range.steps").
	Field string

	// Reason is a short human-readable description.
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
