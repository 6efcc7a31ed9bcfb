package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	// ErrInvalid marks input rejected at the boundary (negative amount, bad direction, ...).
	ErrInvalid = errors.New("invalid")
	// ErrStorage wraps failures of the persistence layer. Callers never see partial writes.
	ErrStorage = errors.New("storage_failure")
	// ErrUpstream is returned when an external endpoint answers with a failure.
	ErrUpstream = errors.New("upstream_failure")
)

// Storage tags err as a persistence failure while keeping the cause inspectable.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Invalidf builds an ErrInvalid with a formatted detail message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
