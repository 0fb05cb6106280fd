package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no authenticated user is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an entity belongs to another user.
	// Handlers report it exactly like ErrNotFound.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation marks invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState is returned when mutating a closed or written-off investment.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsUserFacing reports whether err carries a message safe to show to the caller.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidState)
}
