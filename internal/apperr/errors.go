// Package apperr defines the error taxonomy shared by the scheduler packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced rating, gate or session does not exist.
	// It signals a caller bug and is never retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means an argument is outside the documented domain
	// (out-of-range quality, negative or NaN time, malformed requirement).
	ErrInvalidInput = errors.New("invalid input")
)

// InputError describes which argument was rejected and why.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Invalid returns an *InputError for field with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the kind and key of the missing entity.
func NotFound(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, ErrNotFound)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
