// Package apperror defines the domain error variant raised by services and the
// classifier that turns any raised error into a client-safe outcome.
//
// Services return typed errors:
//
//	if len(in.Authors) == 0 {
//	    return apperror.Validation("at least one author is required")
//	}
//
// Boundary code never inspects errors itself; it calls Classifier.Classify and
// writes the result.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure kinds known to the classifier
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindDatabase     Kind = "DATABASE"
	KindBadRequest   Kind = "BAD_REQUEST"
	KindInternal     Kind = "INTERNAL"
)

// Default messages for domain errors constructed without one
const (
	DefaultNotFoundMessage     = "Resource not found"
	DefaultUnauthorizedMessage = "Unauthorized"
	DefaultDatabaseMessage     = "Database operation failed"
)

// ErrMalformedPayload marks request bodies that could not be decoded
var ErrMalformedPayload = errors.New("malformed request payload")

// Error is a domain error. Only the domain kinds (Validation, NotFound,
// Conflict, Unauthorized, Database) are constructed as *Error; the remaining
// kinds are produced by classification of foreign errors.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: e.Details, cause: err}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation error"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: DefaultNotFoundMessage}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: DefaultUnauthorizedMessage}
	ErrDatabase     = &Error{Kind: KindDatabase, Message: DefaultDatabaseMessage}
)

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// NotFound creates a not found error. An empty msg uses the default message.
func NotFound(msg string) *Error {
	if msg == "" {
		msg = DefaultNotFoundMessage
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Unauthorized creates an unauthorized error. An empty msg uses the default message.
func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = DefaultUnauthorizedMessage
	}
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Database creates an explicitly raised database error. An empty msg uses the default message.
func Database(msg string) *Error {
	if msg == "" {
		msg = DefaultDatabaseMessage
	}
	return &Error{Kind: KindDatabase, Message: msg}
}

// Wrap wraps err in a domain error of the given kind.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: err}
}
