package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrApplicationNotFound is returned when an application ID does not exist
// within the caller's tenant scope.
var ErrApplicationNotFound = errors.New("application not found")

// FieldError describes one validation failure in an ingested batch.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every validation failure found in a batch, not
// just the first.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "invalid event batch: " + strings.Join(parts, "; ")
}

// Add appends a field error, returning the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}
