package service

import (
	"errors"
	"fmt"

	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
)

var (
	// ErrValidation marks a malformed request. Use errors.As with *ValidationError for the field.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized is returned when the caller may not see or act on a record.
	// Missing records report it too so ids cannot be enumerated.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict is returned when the record changed between load and save
	ErrConflict = errors.New("concurrent modification")

	// ErrInvalidTransition is returned when (status, action, role) is not in the review table
	ErrInvalidTransition = domainwf.ErrInvalidTransition
)

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}

func invalidf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
