package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/storyspark/sparkgen/internal/provider"
)

// providerTestTimeout bounds the admin connectivity test.
const providerTestTimeout = 15 * time.Second

// handleListProviders returns the registry descriptors as JSON.
func (g *Gateway) handleListProviders() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		descriptors := []provider.Descriptor{}
		if g.registry != nil {
			descriptors = g.registry.Descriptors()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(descriptors)
	}
}

// providerTestResponse is the JSON response for POST /api/providers/{name}/test.
type providerTestResponse struct {
	Provider  string `json:"provider"`
	OK        bool   `json:"ok"`
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleTestProvider fires a one-off connectivity prompt at a single
// provider, bypassing the fallback chain.
func (g *Gateway) handleTestProvider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if g.registry == nil {
			http.Error(w, "no registry configured", http.StatusServiceUnavailable)
			return
		}
		entry, ok := g.registry.Lookup(name)
		if !ok {
			http.Error(w, "unknown provider", http.StatusNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerTestTimeout)
		defer cancel()

		result, err := entry.Generator.Generate(ctx, provider.GenerationRequest{
			Prompt:    "Teste de conectividade. Responda apenas OK.",
			MaxTokens: 10,
			UserID:    "admin",
			Context:   "provider_test",
		})

		resp := providerTestResponse{Provider: name, OK: err == nil}
		if err != nil {
			resp.ErrorKind = string(provider.KindOf(err))
			resp.Error = err.Error()
		} else {
			resp.Model = result.Model
			resp.LatencyMS = result.Latency.Milliseconds()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleContingencyStats aggregates fallback events over a trailing window.
// The window defaults to 7 days and is capped at 365.
func (g *Gateway) handleContingencyStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.stats == nil {
			http.Error(w, "no stats store configured", http.StatusServiceUnavailable)
			return
		}

		days := 7
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 365 {
				http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
				return
			}
			days = n
		}

		stats, err := g.stats.ContingencyStats(r.Context(), days)
		if err != nil {
			g.logger.Error("contingency stats query failed", "error", err)
			http.Error(w, "stats query failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	}
}

// handleReload re-derives provider availability and re-syncs the log
// redactor after credential rotation.
func (g *Gateway) handleReload() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.registry != nil {
			g.registry.Refresh()
		}
		if g.redactor != nil && g.creds != nil {
			g.redactor.SyncCredentials(g.creds)
		}

		g.logger.Info("provider availability refreshed via admin API")
		w.WriteHeader(http.StatusNoContent)
	}
}
