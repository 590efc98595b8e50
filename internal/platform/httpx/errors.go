// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("domain conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error attaches a stable machine-readable code to one of the sentinel kinds.
type Error struct {
	Kind   error
	Code   string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds a coded error of the given kind.
func NewError(kind error, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// Validation returns a coded validation error.
func Validation(code, detail string) *Error { return NewError(ErrValidation, code, detail) }

// NotFound returns a coded not-found error.
func NotFound(code string) *Error { return NewError(ErrNotFound, code, "") }

// Conflict returns a coded domain conflict error.
func Conflict(code, detail string) *Error { return NewError(ErrConflict, code, detail) }

// Forbidden returns a coded authorization error.
func Forbidden(code string) *Error { return NewError(ErrForbidden, code, "") }

// CodeOf extracts the machine code carried by err, if any.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	detail := ""
	var coded *Error
	if errors.As(err, &coded) {
		detail = coded.Detail
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", code, detail)
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", code, detail)
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", code, detail)
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", code, detail)
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", code, detail)
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", code, detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "")
	}
}
