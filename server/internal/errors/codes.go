package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type surfaced at the webhook boundary.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeServiceUnavailable indicates a dependency is not reachable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeSessionExpired indicates the referenced session is absent or past its deadline.
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	// ErrCodeWriteFailed indicates the ticket tracker rejected a work log.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
	// ErrCodeInternal indicates an unexpected fault.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ServiceError represents a structured error returned to webhook callers.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *ServiceError) WithContext(key string, value any) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the code onto a response status.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeSessionExpired:
		return http.StatusGone
	case ErrCodeWriteFailed:
		return http.StatusBadGateway
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeServiceUnavailable, Message: msg, Cause: cause}
}

// SessionExpired creates a session expired error.
func SessionExpired(sessionID string) *ServiceError {
	return (&ServiceError{Code: ErrCodeSessionExpired, Message: "session expired, please try again"}).
		WithContext("session_id", sessionID)
}

// WriteFailed creates a tracker write failure.
func WriteFailed(cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeWriteFailed, Message: "failed to log work", Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or anything it wraps, carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ServiceError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr.Code
	}
	return defaultCode
}
