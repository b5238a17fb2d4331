// Package apperr is the centralized error type translating internal failures
// into client-safe HTTP responses without leaking internals.
package apperr

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status, a machine-readable code, a client-safe
// message and a private cause kept out of any client-facing encoding.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

func NotFound(resource string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, HTTPStatus: http.StatusForbidden}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, HTTPStatus: http.StatusConflict}
}

func ValidationError(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, HTTPStatus: http.StatusUnprocessableEntity}
}

func RateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, HTTPStatus: http.StatusTooManyRequests}
}

func ServiceUnavailable(msg string) *AppError {
	return &AppError{Code: "SERVICE_UNAVAILABLE", Message: msg, HTTPStatus: http.StatusServiceUnavailable}
}

// Internal wraps an unexpected server-side error. cause is logged, never
// sent to clients.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// WithCorrelationID composes the client-safe body a 500 response emits,
// carrying a correlation id instead of any stack trace.
func WithCorrelationID(correlationID string) map[string]any {
	return map[string]any{
		"code":           "INTERNAL_ERROR",
		"error":          "an unexpected error occurred",
		"correlation_id": correlationID,
	}
}

func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
