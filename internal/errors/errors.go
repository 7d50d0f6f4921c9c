// Package errors provides the shared error taxonomy for event handlers.
// The Kind of an error decides what the retry service does with a failed
// event: reschedule it, surface it, or crash loud.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for retry/reschedule decisions.
type Kind int

const (
	// KindValidation represents a payload that does not match the schema.
	// Rejected, never retried.
	KindValidation Kind = iota

	// KindNotFound represents a missing entity where one was expected
	// (e.g. no Project registered for a repository). Surfaced, not retried.
	KindNotFound

	// KindExternalAPI represents a failed remote call. Retried.
	KindExternalAPI

	// KindInternalDependency represents a temporarily unreachable dependency
	// or an in-flight creation that blocks this handler. Retried.
	KindInternalDependency

	// KindConflict represents a duplicate record or a creation already in
	// progress for the same key. Retried.
	KindConflict

	// KindFatal represents a programmer error or invariant violation.
	KindFatal
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindExternalAPI:
		return "ExternalApi"
	case KindInternalDependency:
		return "InternalDependency"
	case KindConflict:
		return "Conflict"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error is a structured error with a kind, message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Rescheduleable reports whether the retry service should republish the
// event that produced this error.
func (e *Error) Rescheduleable() bool {
	switch e.Kind {
	case KindExternalAPI, KindInternalDependency, KindConflict:
		return true
	}
	return false
}

// Constructor functions

// Validation creates an error for malformed payloads.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for missing entities.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ExternalAPI creates an error for failed remote calls.
func ExternalAPI(format string, args ...interface{}) *Error {
	return &Error{Kind: KindExternalAPI, Message: fmt.Sprintf(format, args...)}
}

// InternalDependency creates an error for temporarily blocked handlers.
func InternalDependency(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternalDependency, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates an error for duplicate records or in-progress creations.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Fatal creates an error for invariant violations.
func Fatal(format string, args ...interface{}) *Error {
	return &Error{Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a specific kind and message.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WrapExternal wraps an error as an external-API error.
func WrapExternal(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindExternalAPI, format, args...)
}

// Helper functions

// GetKind extracts the Kind from an error, returning KindFatal for errors
// that did not come out of this package.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// Is returns true if the error is of the specified kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRescheduleable reports whether the retry service should republish the
// event that produced this error. Unclassified errors are treated as
// external failures and retried; losing an event is worse than replaying
// an idempotent handler.
func IsRescheduleable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Rescheduleable()
	}
	return true
}
