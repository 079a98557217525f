package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public routes, no auth required.
	r.Get("/health", g.handleHealth())
	r.Post("/api/generate", g.handleGenerate())
	r.Get("/ws/generate", g.handleGenerateWS())

	if g.metrics != nil {
		r.Handle("/metrics", g.metrics.Handler())
	}

	// Admin endpoints require auth. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			r.Get("/status", g.handleStatus())
			r.Get("/api/providers", g.handleListProviders())
			r.Post("/api/providers/{name}/test", g.handleTestProvider())
			r.Get("/api/stats/contingency", g.handleContingencyStats())
			r.Post("/api/reload", g.handleReload())
		})
	}

	return r
}
