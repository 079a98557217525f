// Package metrics exposes Prometheus collectors for the generation
// contingency flow and the HTTP handler that serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storyspark/sparkgen/internal/provider"
)

// Metrics implements provider.Observer on top of a dedicated Prometheus
// registry. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	requestsStarted prometheus.Counter
	requestsOK      *prometheus.CounterVec
	requestsFailed  prometheus.Counter
	attemptErrors   *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requestsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "generation_requests_total",
			Help:      "Generation requests received by the orchestrator.",
		}),
		requestsOK: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "generation_success_total",
			Help:      "Successful generations by serving provider.",
		}, []string{"provider"}),
		requestsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "generation_exhausted_total",
			Help:      "Requests for which every provider failed.",
		}),
		attemptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "provider_attempt_errors_total",
			Help:      "Failed provider attempts by provider and error kind.",
		}, []string{"provider", "kind"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "fallback_activations_total",
			Help:      "Contingency activations by original and fallback provider.",
		}, []string{"original", "fallback"}),
		tokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkgen",
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by successful generations, per provider.",
		}, []string{"provider"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sparkgen",
			Name:      "generation_latency_seconds",
			Help:      "End-to-end latency of successful provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
	}
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestStarted implements provider.Observer.
func (m *Metrics) RequestStarted() {
	m.requestsStarted.Inc()
}

// AttemptFailed implements provider.Observer.
func (m *Metrics) AttemptFailed(providerName string, kind provider.ErrorKind) {
	m.attemptErrors.WithLabelValues(providerName, string(kind)).Inc()
}

// RequestSucceeded implements provider.Observer.
func (m *Metrics) RequestSucceeded(providerName string, tokens int, latency time.Duration) {
	m.requestsOK.WithLabelValues(providerName).Inc()
	m.tokensUsed.WithLabelValues(providerName).Add(float64(tokens))
	m.latency.WithLabelValues(providerName).Observe(latency.Seconds())
}

// FallbackActivated implements provider.Observer.
func (m *Metrics) FallbackActivated(original, fallback string) {
	m.fallbacks.WithLabelValues(original, fallback).Inc()
}

// RequestExhausted implements provider.Observer.
func (m *Metrics) RequestExhausted() {
	m.requestsFailed.Inc()
}

// Interface guard.
var _ provider.Observer = (*Metrics)(nil)
