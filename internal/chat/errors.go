package chat

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for clients and for HTTP mapping.
type Code string

const (
	CodeAuth       Code = "auth_error"
	CodePermission Code = "permission_error"
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeThrottled  Code = "throttled"
	CodeTransient  Code = "transient_error"
)

// Error is the typed error returned by the chat core. It is reported only to
// the session that initiated the failing action, never broadcast.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) *Error {
	return newError(CodePermission, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newError(CodeValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

func Throttled(format string, args ...any) *Error {
	return newError(CodeThrottled, format, args...)
}

func Transient(format string, args ...any) *Error {
	return newError(CodeTransient, format, args...)
}

// CodeOf extracts the domain code from err, defaulting to transient for
// untyped errors (storage failures and the like).
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeTransient
}
