package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies an AppError for the transport.
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrDuplicate
)

// String is the machine-readable name rendered in error bodies.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "bad_request"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrConflict:
		return "conflict"
	case ErrDuplicate:
		return "duplicate"
	default:
		return "internal"
	}
}

// AppError is a domain failure carrying the message shown to API callers.
// Err keeps the cause for logs and errors.Is.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrConflict, ErrDuplicate:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(message string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: message, Err: err}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func Duplicate(message string, err error) *AppError {
	return &AppError{Code: ErrDuplicate, Message: message, Err: err}
}

// Internal hides the cause from callers.
func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(err error) *AppError {
	return &AppError{Code: ErrForbidden, Message: "forbidden", Err: err}
}
