package apperr

// error_response.go implements the default error body returned by the server.
// The shape follows the default error attributes of Spring Boot (timestamp, status, error, path)
// so clients of the previous deployment see the same responses.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nov03/bgdeploy-ts/internal/logger"
)

// ErrorResponse is the JSON body of every error produced by the framework layer
type ErrorResponse struct {
	// The DateTime corresponding to the error occurring (RFC3339, UTC)
	Timestamp string `json:"timestamp"`

	// The HTTP status code returned
	Status int `json:"status"`

	// The standard short description corresponding to the HTTP status code
	Error string `json:"error"`

	// Additional information about the error. Internal errors are not described to the client.
	Message string `json:"message,omitempty"`

	// The request path
	Path string `json:"path"`

	// A unique identifier for the request (also logged server-side)
	RequestID string `json:"requestId,omitempty"`

	// The application error code
	ErrorCode ErrorCode `json:"errorCode"`
}

// MapErrorToResponse maps an AppError (or any other error) to an ErrorResponse.
//
// Errors that are not AppErrors are not expected here: they are logged and returned as internal errors.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var appErr *AppError
	if !errors.As(err, &appErr) {
		reqLogger := logger.ContextRequestLogger(r.Context())
		reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
			slog.String("error_type", fmt.Sprintf("%T", err)),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		appErr = &AppError{code: ErrCodeInternalError, message: "an internal error occurred", wrapped: err}
	}

	statusCode := StatusCode(appErr.Code())

	message := appErr.Error()
	if statusCode >= http.StatusInternalServerError {
		// the full error is only logged server-side
		message = http.StatusText(statusCode)
	}

	return &ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    statusCode,
		Error:     http.StatusText(statusCode),
		Message:   message,
		Path:      r.URL.Path,
		RequestID: requestID,
		ErrorCode: appErr.Code(),
	}
}

// StatusCode returns the HTTP status for an error code
func StatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
