package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the store. Callers test them with errors.Is / errors.As.
var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when an operation references a product
	// or location that does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrConflict is returned when a unique key is already taken and the
	// operation has no natural fallback.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a mandatory field that could not be used.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
