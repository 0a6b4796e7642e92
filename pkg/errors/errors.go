package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable machine-readable code and the HTTP
// status it maps to. Err keeps the underlying cause for logs only.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return newError("NOT_FOUND", http.StatusNotFound, fmt.Sprintf("%s not found", resource), err)
}

func BadRequest(message string, err error) *AppError {
	return newError("BAD_REQUEST", http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *AppError {
	return newError("UNAUTHORIZED", http.StatusUnauthorized, message, err)
}

// Forbidden is returned when the viewer is known but may not touch the
// conversation, e.g. an installer reading someone else's thread.
func Forbidden(message string, err error) *AppError {
	return newError("FORBIDDEN", http.StatusForbidden, message, err)
}

// Conflict rejects a write that collides with stored state, such as a
// client message id reused for a different body.
func Conflict(message string, err error) *AppError {
	return newError("CONFLICT", http.StatusConflict, message, err)
}

func Internal(message string, err error) *AppError {
	return newError("INTERNAL_ERROR", http.StatusInternalServerError, message, err)
}

// TooManyRequests carries the wait time in the message so clients can back off.
func TooManyRequests(message string, retryAfter fmt.Stringer) *AppError {
	if retryAfter != nil {
		message = fmt.Sprintf("%s (retry after %s)", message, retryAfter)
	}
	return newError("TOO_MANY_REQUESTS", http.StatusTooManyRequests, message, nil)
}

// As unwraps err to the first AppError in its chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Is(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
