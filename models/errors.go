package models

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an id that resolves in neither the registered
// nor the anonymous sub-store.
var ErrNotFound = errors.New("record not found")

// ValidationError names the missing or invalid field of a rejected
// request. Handlers surface it as a 400 with the field name.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
