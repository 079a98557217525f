package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	Providers     []provider.Descriptor `json:"providers"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
		}

		if g.registry != nil {
			resp.Providers = g.registry.Descriptors()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
