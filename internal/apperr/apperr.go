// Package apperr classifies domain failures so the HTTP layer can map them to
// status codes without knowing every package's sentinels.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindCapacity     Kind = "capacity"
	KindBusy         Kind = "busy"
	KindStorage      Kind = "storage"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches kind and code to err. The message defaults to err's.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Validationf(code, format string, args ...any) *Error {
	return New(KindValidation, code, fmt.Sprintf(format, args...))
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the outermost *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}
