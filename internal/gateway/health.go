package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/storyspark/sparkgen/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string                `json:"status"` // "ok" or "degraded"
	Providers []provider.Descriptor `json:"providers"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 when at least one provider is available, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.registry != nil {
			resp.Providers = g.registry.Descriptors()
		}

		available := 0
		for _, d := range resp.Providers {
			if d.Available {
				available++
			}
		}
		if available == 0 {
			resp.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
