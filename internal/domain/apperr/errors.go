// Package apperr defines the error taxonomy shared by the domain services and
// the HTTP layer. Services return these (possibly wrapped); handlers map them
// to status codes with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict marks a duplicate unique key (e.g. an email that is already registered).
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated is returned when an operation requires a resolved user
	// and none was supplied (missing, malformed or unknown bearer token).
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials is the single, generic login failure. It never says
	// whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports missing or malformed required input.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Missing builds a ValidationError naming the given fields.
func Missing(fields ...string) ValidationError {
	return ValidationError{Fields: fields}
}

// StoreError wraps an underlying persistence failure. It is never caused by
// bad input; callers surface it as a server error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err as a StoreError for op. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
