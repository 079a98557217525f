// Package gateway provides the HTTP surface of the service: the generation
// endpoint, a WebSocket progress stream, health, status, metrics, and the
// authenticated admin API. It binds to loopback by default and follows the
// module system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/metrics"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
	"github.com/storyspark/sparkgen/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module; nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	orchestrator *provider.Orchestrator
	registry     *provider.Registry
	recorder     *record.Gateway
	stats        record.StatsReader
	metrics      *metrics.Metrics
	redactor     *security.Redactor
	creds        *security.CredentialStore
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	// The orchestrator and registry are wired by the app after module
	// provisioning; everything else degrades gracefully when absent.
	if svc, ok := g.appCtx.Service("provider.orchestrator"); ok {
		if orch, ok := svc.(*provider.Orchestrator); ok {
			g.orchestrator = orch
		}
	}
	if svc, ok := g.appCtx.Service("provider.registry"); ok {
		if reg, ok := svc.(*provider.Registry); ok {
			g.registry = reg
		}
	}
	if svc, ok := g.appCtx.Service("record.gateway"); ok {
		if rec, ok := svc.(*record.Gateway); ok {
			g.recorder = rec
		}
	}
	if svc, ok := g.appCtx.Service("record.stats"); ok {
		if reader, ok := svc.(record.StatsReader); ok {
			g.stats = reader
		}
	}
	if svc, ok := g.appCtx.Service("metrics"); ok {
		if m, ok := svc.(*metrics.Metrics); ok {
			g.metrics = m
		}
	}
	if svc, ok := g.appCtx.Service("security.redactor"); ok {
		if red, ok := svc.(*security.Redactor); ok {
			g.redactor = red
		}
	}
	if svc, ok := g.appCtx.Service("security.credentials"); ok {
		if creds, ok := svc.(*security.CredentialStore); ok {
			g.creds = creds
		}
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
