package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jacentio/folio/column"
)

var (
	// ErrNotFound is returned when a primary key does not resolve to a row.
	ErrNotFound = errors.New("folio: document not found")

	// ErrConflict is returned when a conditioned write's precondition fails.
	ErrConflict = errors.New("folio: write condition not met")

	// ErrInvalidField is returned for a field name outside an entity's known or updatable set.
	ErrInvalidField = errors.New("folio: invalid field")

	// ErrValidation is returned for rejected input such as an illegal status transition.
	ErrValidation = errors.New("folio: invalid argument")

	// ErrScope is returned when the stored owning-group id differs from the caller's.
	ErrScope = errors.New("folio: owner scope mismatch")

	// ErrTimeout is returned when a store call exceeds its deadline. The write
	// may or may not have landed.
	ErrTimeout = errors.New("folio: store call timed out")
)

// NotFoundError identifies the missing row.
type NotFoundError struct {
	Table string
	Key   column.Columns
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("folio: %s %s not found", e.Table, formatKey(e.Key))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError carries the token a write expected and the token the store held.
type ConflictError struct {
	Table    string
	Column   string
	Expected column.Value
	Got      column.Value
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("folio: %s: %s mismatch, expected %v, got %v", e.Table, e.Column, e.Expected, e.Got)
	}
	return fmt.Sprintf("folio: %s: %s", e.Table, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidFieldError names the rejected field.
type InvalidFieldError struct {
	Table string
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("folio: %s: invalid field %q", e.Table, e.Field)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }

// ValidationError describes rejected input.
type ValidationError struct {
	Table  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("folio: %s: %s", e.Table, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(table, format string, args ...any) error {
	return &ValidationError{Table: table, Reason: fmt.Sprintf(format, args...)}
}

// ScopeError reports an owning-group mismatch.
type ScopeError struct {
	Table string
	Want  string
	Got   string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("folio: %s: owned by %s, not %s", e.Table, e.Got, e.Want)
}

func (e *ScopeError) Is(target error) bool { return target == ErrScope }

// IsRetryable reports whether err is a timeout the caller may retry after
// re-checking state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// StatusCode maps an error to the HTTP status an API layer should return.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidField), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrScope):
		return http.StatusForbidden
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type timeoutError struct{ cause error }

func (e *timeoutError) Error() string        { return "folio: store call timed out: " + e.cause.Error() }
func (e *timeoutError) Unwrap() error        { return e.cause }
func (e *timeoutError) Is(target error) bool { return target == ErrTimeout }

// Timeout wraps a backend-specific timeout so it matches ErrTimeout.
func Timeout(cause error) error {
	if cause == nil || errors.Is(cause, ErrTimeout) {
		return cause
	}
	return &timeoutError{cause: cause}
}

// classify maps deadline errors to ErrTimeout and leaves others untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout(err)
	}
	return err
}

func formatKey(key column.Columns) string {
	if len(key) == 0 {
		return "{}"
	}
	s := "{"
	for i, k := range key.Keys() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, key[k])
	}
	return s + "}"
}
