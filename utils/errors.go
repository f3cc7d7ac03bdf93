package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures into the client-facing taxonomy.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Status returns the HTTP status for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an error carrying a kind, a business code and a client-safe message.
type AppError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, code int, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(code int, msg string) *AppError {
	return newError(KindUnauthenticated, code, msg)
}

// Forbidden reports an authenticated actor lacking permission.
func Forbidden(code int, msg string) *AppError { return newError(KindForbidden, code, msg) }

// NotFound reports an id that does not resolve.
func NotFound(code int, msg string) *AppError { return newError(KindNotFound, code, msg) }

// Validation reports malformed or missing input.
func Validation(code int, msg string) *AppError { return newError(KindValidation, code, msg) }

// Conflict reports a uniqueness violation.
func Conflict(code int, msg string) *AppError { return newError(KindConflict, code, msg) }

// Internal wraps an unexpected failure; msg is what the client sees.
func Internal(code int, msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: code, Message: msg, Err: err}
}

// Timeout wraps a deadline overrun.
func Timeout(err error) *AppError {
	return &AppError{Kind: KindTimeout, Code: 50400, Message: "request timed out", Err: err}
}

// Wrap classifies err: AppErrors pass through, context deadline errors become Timeout and
// everything else becomes Internal with the given code and message.
func Wrap(err error, code int, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	return Internal(code, msg, err)
}

// KindOf returns the taxonomy kind of err.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}
