package record

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// Gateway fans out generation records and fallback events to every
// configured sink asynchronously. A sink failing, hanging, or missing
// entirely never affects the caller: the generation result was already
// delivered before the gateway is invoked.
type Gateway struct {
	sinks       []Sink
	logger      *slog.Logger
	writeWindow time.Duration
	now         func() time.Time

	wg sync.WaitGroup
}

// GatewayOption configures optional Gateway behavior.
type GatewayOption func(*Gateway)

// WithLogger injects a structured logger for sink failure reports.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithWriteWindow bounds each background sink write. Default: 10s.
func WithWriteWindow(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.writeWindow = d }
}

// NewGateway creates a gateway over the given sinks. A gateway with no
// sinks is valid and discards everything.
func NewGateway(sinks []Sink, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		sinks:       sinks,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		writeWindow: 10 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Record persists one accepted generation to every sink in the background
// and returns immediately. Sink writes are independent: one failing or
// stalling does not delay or abort the others.
func (g *Gateway) Record(result provider.GenerationResult, meta Meta) {
	gen := newGeneration(result, meta, g.now().UTC())

	for _, sink := range g.sinks {
		g.wg.Add(1)
		go func(s Sink) {
			defer g.wg.Done()
			defer g.recover(s, "generation")

			ctx, cancel := context.WithTimeout(context.Background(), g.writeWindow)
			defer cancel()

			if err := s.SaveGeneration(ctx, gen); err != nil {
				g.logger.Warn("generation record dropped",
					"sink", s.Name(),
					"provider", gen.Provider,
					"error", err,
				)
			}
		}(sink)
	}
}

// RecordFallback persists one contingency-log row to every sink in the
// background, with the same best-effort semantics as Record.
func (g *Gateway) RecordFallback(ev provider.FallbackEvent) {
	for _, sink := range g.sinks {
		g.wg.Add(1)
		go func(s Sink) {
			defer g.wg.Done()
			defer g.recover(s, "fallback event")

			ctx, cancel := context.WithTimeout(context.Background(), g.writeWindow)
			defer cancel()

			if err := s.SaveFallbackEvent(ctx, ev); err != nil {
				g.logger.Warn("fallback event dropped",
					"sink", s.Name(),
					"original", ev.OriginalProvider,
					"fallback", ev.FallbackProvider,
					"error", err,
				)
			}
		}(sink)
	}
}

// Flush blocks until every in-flight background write has finished or ctx
// expires. Used at shutdown and in tests; writes started after Flush is
// called are not waited for.
func (g *Gateway) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recover keeps a panicking sink from taking down the process. A sink
// panic is a sink bug, reported like any other sink failure.
func (g *Gateway) recover(s Sink, kind string) {
	if r := recover(); r != nil {
		g.logger.Error("sink panicked",
			"sink", s.Name(),
			"record", kind,
			"panic", r,
		)
	}
}
