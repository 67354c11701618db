// Package dErrors defines the domain error vocabulary for the workflow engine.
// Every error surfaced by a service carries a Code so callers and the HTTP
// layer can branch on the kind of failure without string matching.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are stable and part of the public
// surface; transports map them onto status codes.
type Code string

const (
	// CodeInvalidTransition marks a structurally illegal status edge. Always a
	// client error, never retried automatically.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeConflict marks a lost optimistic-concurrency race. The caller should
	// reload state and retry; the engine performs no implicit retry.
	CodeConflict Code = "conflict"
	// CodeForbidden marks an authorization denial: the actor lacks the
	// capability or scope for the attempted transition.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a subject or actor reference that does not resolve.
	CodeNotFound Code = "not_found"
	// CodeDeliveryFailure marks an exhausted notification delivery. It is
	// recorded on the notification and never propagated to transition callers.
	CodeDeliveryFailure Code = "delivery_failure"

	CodeUnauthorized Code = "unauthorized"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"
)

// Error is a code-carrying domain error. It wraps an optional cause so
// errors.Is/As keep working through the domain layer.
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

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing error with a domain code. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.cause
		domainErr = nil
	}
	return false
}

// CodeOf returns the outermost domain code on err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// Is delegates to the standard library so call sites can stay on one import.
func Is(err, target error) bool { return errors.Is(err, target) }
