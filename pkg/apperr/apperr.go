package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport to clients. Every error that
// crosses a handler or gateway boundary carries exactly one code.
type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeInvalidInput    Code = "invalid_input"
	CodeUnavailable     Code = "unavailable"
)

// Error is the application error type. Message is safe to show to the
// initiating client; the wrapped cause is for logs only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match on the code, so callers can compare against
// sentinel errors like apperr.Forbidden("").
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Unauthenticated(message string) *Error { return newError(CodeUnauthenticated, message) }
func Forbidden(message string) *Error       { return newError(CodeForbidden, message) }
func NotFound(message string) *Error        { return newError(CodeNotFound, message) }
func Conflict(message string) *Error        { return newError(CodeConflict, message) }
func InvalidInput(message string) *Error    { return newError(CodeInvalidInput, message) }

// Unavailable wraps a store or transport failure (timeouts included) that
// the caller may retry; the cause is kept for operational logging.
func Unavailable(message string, cause error) *Error {
	return &Error{Code: CodeUnavailable, Message: message, cause: cause}
}

// CodeOf extracts the code from err, defaulting to Unavailable for
// unclassified failures so internals never leak to clients.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnavailable
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to the status used by the REST handlers.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
