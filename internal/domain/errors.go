// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Specific errors wrap one of these so
// callers can classify a failure with errors.Is.
var (
	// ErrValidation is returned when input or a domain entity fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the actor lacks the capability required
	// for an operation.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrNotFound is returned when a referenced entity does not exist, or is
	// not visible to the actor.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for the given field.
// The result always matches ErrValidation; err, when non-nil, is matched too.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Unwrap exposes both the validation kind and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	switch {
	case e.Err == nil:
		return []error{ErrValidation}
	case errors.Is(e.Err, ErrValidation):
		return []error{e.Err}
	default:
		return []error{ErrValidation, e.Err}
	}
}
