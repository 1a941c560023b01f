package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrValidation   = errors.New("validation failed")
	ErrRunNotFound  = errors.New("run not found")
	ErrNoHistory    = errors.New("run history disabled")
	ErrEmptyRequest = errors.New("request body is empty")
)

// ValidationError rejects a request before any allocation is attempted.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
