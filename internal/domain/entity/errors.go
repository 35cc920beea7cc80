package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a precondition violation the caller can fix
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a caller acting outside their role
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a missing record
	ErrNotFound = errors.New("not found")
)

// ValidationError names the operation and the violated precondition
type ValidationError struct {
	Op     string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation or ErrForbidden
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Invalid builds a precondition violation
func Invalid(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...), Kind: ErrValidation}
}

// Forbidden builds a role violation
func Forbidden(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...), Kind: ErrForbidden}
}
