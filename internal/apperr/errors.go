// Package apperr holds the failure types reported by the registration flow.
// Components below the HTTP handler return these; only the handler turns
// them into status codes and bodies.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflict is returned when the email is already registered.
var ErrConflict = errors.New("email already exists")

// FieldError is one failed input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// StorageError wraps a persistence failure. Error() is deliberately
// generic; the cause is reachable through Unwrap for logging only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage failure" }

func (e *StorageError) Unwrap() error { return e.Err }

// Cause renders the operation and underlying error for logs.
func (e *StorageError) Cause() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

// Storage wraps err as a *StorageError, or returns nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// SigningError is a token issuance failure.
type SigningError struct {
	Kind string
	Err  error
}

func (e *SigningError) Error() string { return fmt.Sprintf("sign %s token: %v", e.Kind, e.Err) }

func (e *SigningError) Unwrap() error { return e.Err }
