package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Input errors
	ErrValidation  = errors.New("validation failed")
	ErrInvalidDate = errors.New("date must be formatted YYYY-MM-DD")

	// Store errors
	ErrRemoteFailure = errors.New("document store unavailable")
	ErrNotFound      = errors.New("document not found")

	// Identity errors
	ErrUnauthenticated    = errors.New("not signed in")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenRevoked       = errors.New("session has been signed out")
)

// ValidationError reports missing or malformed input. The operation was
// not attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RemoteError wraps a store failure with the operation that hit it.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *RemoteError) Unwrap() []error { return []error{ErrRemoteFailure, e.Err} }

// Remote wraps err as a RemoteFailure. Returns nil for a nil err.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}
