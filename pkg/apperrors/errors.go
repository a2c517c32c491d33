// Package apperrors defines the application error taxonomy and the
// classifier that turns any failure into a stable, user-safe HTTP
// response.
package apperrors

import (
	"fmt"
	"net/http"
)

// AppError is an error that declares its own HTTP status, stable error
// code and user-safe message. The Message field must never contain
// internal detail; anything sensitive belongs in the wrapped Err.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with an explicit status, code and message
func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Wrap attaches an underlying cause to a new AppError
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

// BadRequest returns a 400 error
func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized returns a 401 error
func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden returns a 403 error
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound returns a 404 error
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, "NOT_FOUND", message)
}

// MethodNotAllowed returns a 405 error
func MethodNotAllowed(message string) *AppError {
	return New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", message)
}

// Conflict returns a 409 error
func Conflict(message string) *AppError {
	return New(http.StatusConflict, "CONFLICT", message)
}

// Unprocessable returns a 422 error
func Unprocessable(message string) *AppError {
	return New(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", message)
}

// TooManyRequests returns a 429 error
func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", message)
}

// Internal wraps an unexpected failure as a 500 error
func Internal(err error) *AppError {
	return Wrap(err, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
}
