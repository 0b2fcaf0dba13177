// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller should react to it
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

// Machine-readable codes returned in the "error" field of failed responses.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUserExists         = "USER_EXISTS"
	CodePromiseWindow      = "PROMISE_WINDOW_ACTIVE"
	CodeInvitationResolved = "INVITATION_RESOLVED"
)

// Error is an application error with a kind, a stable code and a user-facing message
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Details is merged into the response body, e.g. the remaining wait on a window conflict.
	Details map[string]any
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

// Status maps the error kind to an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns a 400-class error
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a 404-class error for the named entity
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: entity + " not found"}
}

// Conflict returns a 409-class error carrying a machine-readable code
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Internal wraps an infrastructure failure. The message is what the caller sees.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HasCode reports whether err is an *Error with the given code
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
