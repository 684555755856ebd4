package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nov03/bgdeploy-ts/internal/version"
)

// HandleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the version and build information for the service
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func HandleVersion(info version.Info, instanceID string) http.HandlerFunc {
	// Pre-create the response to avoid allocating on every request
	response := VersionResponse{
		Version:    info.Version,
		BuildTime:  info.BuildDate,
		GitCommit:  info.GitCommit,
		Service:    "mywebapp",
		InstanceID: instanceID,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode version", http.StatusInternalServerError)
			return
		}
	}
}

type VersionResponse struct {
	Version    string `json:"version" example:"1.0.0"`
	BuildTime  string `json:"build_time" example:"2024-01-28T10:00:00Z"`
	GitCommit  string `json:"git_commit" example:"abc1234"`
	Service    string `json:"service" example:"mywebapp"`
	InstanceID string `json:"instance_id" example:"9b2f7c1e-5d7a-4a8e-9a67-2a1c3f0e6b11"`
}
