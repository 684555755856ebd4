package apperr

// errors.go defines the errors produced by the framework layer of the application
// (routing, middleware and infrastructure handlers).

import "fmt"

// AppError represents a structured error from the framework layer.
type AppError struct {
	// code is the application error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *AppError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Unwrap() error   { return e.wrapped }

// ErrorCode is returned in the errorCode field of an ErrorResponse.
//
// The codes are the HTTP status multiplied by 10 so a client can derive the status from the code,
// with the last digit free for more specific variants.
type ErrorCode int

const (
	// ErrCodeNotFound is used when no route matches the request path
	ErrCodeNotFound ErrorCode = 4040

	// ErrCodeMethodNotAllowed is used when the path exists but not for the request method
	ErrCodeMethodNotAllowed ErrorCode = 4050

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 4130

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = 4290

	// ErrCodeInternalError is used when an internal server error occurs (including recovered panics)
	ErrCodeInternalError ErrorCode = 5000

	// ErrCodeServiceUnavailable is used when the server is not ready or is shutting down
	ErrCodeServiceUnavailable ErrorCode = 5030
)

// NewNotFoundError creates an error for requests that do not match any route.
func NewNotFoundError(msg string) error {
	return &AppError{code: ErrCodeNotFound, message: msg}
}

// NewMethodNotAllowedError creates an error for requests using an unsupported method.
func NewMethodNotAllowedError(msg string) error {
	return &AppError{code: ErrCodeMethodNotAllowed, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
// Use this when the request body exceeds the maximum allowed size.
func NewRequestTooLargeError(msg string) error {
	return &AppError{code: ErrCodeRequestTooLarge, message: msg}
}

// NewRateLimitError creates a rate limit exceeded error.
func NewRateLimitError(msg string) error {
	return &AppError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &AppError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &AppError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewServiceUnavailableError creates an error for requests received while the server is not ready.
func NewServiceUnavailableError(msg string) error {
	return &AppError{code: ErrCodeServiceUnavailable, message: msg}
}
