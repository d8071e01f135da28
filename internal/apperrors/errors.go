// Package apperrors defines the error kinds every service operation reports.
// Handlers translate them into HTTP responses in one place.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAccessDenied  = errors.New("access denied")
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
)

// ValidationError carries field level messages for bad or missing input.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Validation builds a ValidationError for a single field.
func Validation(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ValidationFields builds a ValidationError from a field -> message map.
func ValidationFields(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// ValidationWithCause is ValidationFields that also matches cause through errors.Is.
func ValidationWithCause(fields map[string]string, cause error) error {
	return &ValidationError{Fields: fields, cause: cause}
}

// InvalidStatus reports a status value outside the closed set. It is a
// ValidationError on the "status" field that also matches ErrInvalidStatus.
func InvalidStatus(value string) error {
	return &ValidationError{
		Fields: map[string]string{"status": fmt.Sprintf("%q is not a valid status", value)},
		cause:  ErrInvalidStatus,
	}
}

// InternalError wraps a store or infrastructure failure. Its message never
// reaches the client.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInternal(err error) bool {
	var i *InternalError
	return errors.As(err, &i)
}
