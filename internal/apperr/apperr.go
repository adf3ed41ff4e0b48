// Package apperr defines the error kinds shared by the store and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindValidation         Kind = "validation"
	KindTransactionFailure Kind = "transaction_failure"
	KindUnauthorized       Kind = "unauthorized"
)

// Error is a structured failure carrying a user-facing message and optional details.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing project, sprint, daily or user.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a missing or malformed input field.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports an authorization failure; details describe the mismatch.
func Forbidden(message string, details any) *Error {
	return &Error{Kind: KindForbidden, Message: message, Details: details}
}

// Unauthorized reports missing or wrong credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Tx wraps a database failure that aborted a multi-step operation.
func Tx(message string, err error) *Error {
	e := &Error{Kind: KindTransactionFailure, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// KindOf returns the kind of the first *Error in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
