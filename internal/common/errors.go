// Package common defines shared constants, sentinel errors and small helpers
// used across the evidence server and the CLI client. Callers should use
// errors.Is to match error kinds.
package common

import (
	"errors"
	"fmt"
)

var (
	// Error kinds surfaced to callers.
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")

	// Infrastructure failures. Never shown to clients verbatim.
	ErrCrypto  = errors.New("crypto error")
	ErrStorage = errors.New("storage error")

	// Repository-level errors.
	ErrVersionConflict = errors.New("version conflict")
)

// Error pairs an error kind with a message that is safe to show to a client.
type Error struct {
	Kind    error
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

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf builds an *Error of the given kind with a formatted safe message.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind that keeps cause for logging.
// The cause text is never part of the safe message.
func Wrap(kind error, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// SafeMessage returns the client-facing message of err, or "" when err does
// not carry one.
func SafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
