package handlers

import (
	"net/http"

	"github.com/nov03/bgdeploy-ts/internal/apperr"
)

// ReadinessChecker reports whether the server is accepting traffic
type ReadinessChecker interface {
	Ready() bool
}

// HandleHealth godoc
//
//	@Summary		Health (liveness) Check
//	@Description	Check if the HTTP service is alive and responding.
//	@Tags			Common
//	@Produce		plain
//
//	@Success		200	{string}	string	"OK"
//
//	@Router			/health/live [get]
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleReadiness godoc
//
//	@Summary		Readiness Check
//	@Description	Checks if the service is ready to accept traffic.
//	@Description	Returns 503 before the listener is bound and while the server is draining connections during shutdown,
//	@Description	so a load balancer stops sending new requests before the process exits.
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	map[string]string	"status ready"
//	@Failure		503	{object}	apperr.ErrorResponse	"not ready"
//	@Router			/health/ready [get]
func HandleReadiness(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checker.Ready() {
			apperr.RespondWithError(w, r, apperr.NewServiceUnavailableError("server is not accepting traffic"))
			return
		}

		apperr.RespondWithJSONPayload(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
