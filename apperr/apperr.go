// Package apperr defines the error kinds surfaced by the issue tracker.
//
// Every failure the core raises wraps exactly one of the sentinel errors below,
// so transports map errors with errors.Is rather than by inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidToken covers malformed, tampered and expired tokens alike.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrUnauthorized)
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a kind plus a caller-facing message.
type Error struct {
	kind    error
	Message string
	Details []FieldError
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds an InvalidInput error carrying per-field details.
func Validation(details ...FieldError) *Error {
	e := newError(ErrInvalidInput, "Invalid request data")
	e.Details = details
	return e
}

func Unauthorized(format string, args ...any) *Error {
	return newError(ErrUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(ErrForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(ErrConflict, format, args...)
}

// Message returns the caller-facing message of err, or fallback when err
// carries no *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
