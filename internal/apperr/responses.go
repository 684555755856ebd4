package apperr

// responses.go provides helper functions for sending error responses to the client.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nov03/bgdeploy-ts/internal/logger"
)

// RespondWithError maps err to an ErrorResponse and writes it to the client.
//
// 5xx errors are logged at error level with the full error, other errors are added to the request log line.
// Service unavailable is an expected state (draining, not yet listening) and is not logged as an error.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	resp := MapErrorToResponse(err, r)

	if resp.Status >= http.StatusInternalServerError && resp.ErrorCode != ErrCodeServiceUnavailable {
		logger.ContextRequestLogger(r.Context()).Error("request failed",
			slog.Int("error_code", int(resp.ErrorCode)),
			slog.String("error", err.Error()),
		)
	} else {
		logger.ContextWithLogAttrs(r.Context(),
			slog.Int("error_code", int(resp.ErrorCode)),
			slog.String("error", err.Error()),
		)
	}

	RespondWithErrorResponse(w, resp)
}

// RespondWithErrorResponse writes an already mapped ErrorResponse.
func RespondWithErrorResponse(w http.ResponseWriter, resp *ErrorResponse) {
	RespondWithJSONPayload(w, resp.Status, resp)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written so there is nothing more to send
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}
