package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindValidation      ErrorKind = "VALIDATION"
	ErrorKindConflict        ErrorKind = "CONFLICT"
	ErrorKindForbidden       ErrorKind = "FORBIDDEN"
	ErrorKindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	ErrorKindNotFound        ErrorKind = "NOT_FOUND"
	ErrorKindPersistence     ErrorKind = "PERSISTENCE"
)

// Error is the application error returned by services and repositories.
// Message is safe to show to clients; Err is kept for logs only.
type Error struct {
	Kind          ErrorKind         `json:"-"`
	Code          string            `json:"code"`
	Message       string            `json:"message"`
	Fields        map[string]string `json:"fields,omitempty"`
	Conflicts     []Interval        `json:"conflicts,omitempty"`
	CurrentStatus ReservationStatus `json:"current_status,omitempty"`
	Err           error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(code, message string, fields map[string]string) *Error {
	return &Error{Kind: ErrorKindValidation, Code: code, Message: message, Fields: fields}
}

// NewFieldError is a shortcut for a validation error about a single input field.
func NewFieldError(field, message string) *Error {
	return NewValidationError("VALIDATION_FAILED", "request validation failed", map[string]string{field: message})
}

func NewConflictError(code, message string) *Error {
	return &Error{Kind: ErrorKindConflict, Code: code, Message: message}
}

func NewForbiddenError(message string) *Error {
	return &Error{Kind: ErrorKindForbidden, Code: "FORBIDDEN", Message: message}
}

func NewUnauthenticatedError(message string) *Error {
	return &Error{Kind: ErrorKindUnauthenticated, Code: "UNAUTHENTICATED", Message: message}
}

func NewNotFoundError(entity string, id int64) *Error {
	return &Error{Kind: ErrorKindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func NewPersistenceError(err error) *Error {
	return &Error{Kind: ErrorKindPersistence, Code: "PERSISTENCE_ERROR", Message: "the operation could not be completed", Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are treated as
// persistence failures.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrorKindPersistence
}

// AsError converts any error into an *Error, wrapping unknown errors as
// persistence failures.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewPersistenceError(err)
}

// IsNotFound reports whether err is a not-found application error.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}
