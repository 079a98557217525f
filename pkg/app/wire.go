package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storyspark/sparkgen/internal/config"
	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/cron"
	"github.com/storyspark/sparkgen/internal/metrics"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
	"github.com/storyspark/sparkgen/internal/sanitize"
)

// schedulerModule wraps a *cron.Scheduler to satisfy core.Module,
// core.Starter, and core.Stopper, so the scheduler participates in the
// App lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error {
	return m.scheduler.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// recorderModule flushes pending record writes on shutdown.
type recorderModule struct {
	recorder *record.Gateway
}

func (m *recorderModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "record"}
}

func (m *recorderModule) Stop(ctx context.Context) error {
	return m.recorder.Flush(ctx)
}

// wireContingency discovers provider candidates and record sinks from the
// loaded modules, builds the registry, orchestrator, record gateway, and
// cron jobs, and registers everything for cross-module discovery.
// Must be called after LoadModules and before Start.
func wireContingency(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	ids []string,
	logger *slog.Logger,
) (*provider.Registry, error) {
	// Discover provider candidates from loaded modules.
	var entries []provider.Entry
	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if c, ok := mod.(provider.Candidate); ok {
			entries = append(entries, provider.Entry{Descriptor: c.Describe(), Generator: c})
			logger.Info("contingency: discovered provider", "module", id)
		}
	}

	registry, err := provider.NewRegistry(entries)
	if err != nil {
		return nil, fmt.Errorf("building provider registry: %w", err)
	}

	// Discover record sinks via the services store modules registered.
	var sinks []record.Sink
	var stats record.StatsReader
	var pruner cron.EventPruner
	for _, id := range ids {
		if !strings.HasPrefix(id, "store.") {
			continue
		}
		svc, ok := appCtx.Service(id)
		if !ok {
			continue
		}
		sink, ok := svc.(record.Sink)
		if !ok {
			continue
		}
		sinks = append(sinks, sink)
		logger.Info("contingency: discovered sink", "module", id)

		if stats == nil {
			if reader, ok := svc.(record.StatsReader); ok {
				stats = reader
			}
		}
		if pruner == nil {
			if p, ok := svc.(cron.EventPruner); ok {
				pruner = p
			}
		}
	}

	m := metrics.New()
	recorder := record.NewGateway(sinks, record.WithLogger(logger))

	policy := provider.Policy{
		AttemptTimeout:     cfg.Contingency.AttemptTimeout(),
		RetriesPerProvider: cfg.Contingency.RetriesPerProvider,
		RetryDelay:         cfg.Contingency.RetryDelay(),
	}

	orchestrator := provider.NewOrchestrator(registry, policy,
		provider.WithLogger(logger),
		provider.WithSanitizer(sanitize.Clean),
		provider.WithObserver(m),
		provider.WithFallbackHook(recorder.RecordFallback),
	)

	appCtx.RegisterService("provider.registry", registry)
	appCtx.RegisterService("provider.orchestrator", orchestrator)
	appCtx.RegisterService("record.gateway", recorder)
	appCtx.RegisterService("metrics", m)
	if stats != nil {
		appCtx.RegisterService("record.stats", stats)
	}

	// Background maintenance: periodic availability refresh, and
	// contingency-log retention when a prunable store is present.
	scheduler := cron.NewScheduler(logger)
	if err := scheduler.RegisterJob(&cron.RegistryRefreshJob{Registry: registry, Logger: logger}); err != nil {
		return nil, fmt.Errorf("registering refresh job: %w", err)
	}
	if pruner != nil {
		if err := scheduler.RegisterJob(&cron.FallbackRetentionJob{Store: pruner, Logger: logger}); err != nil {
			return nil, fmt.Errorf("registering retention job: %w", err)
		}
	}

	app.AppendModule("record", &recorderModule{recorder: recorder})
	app.AppendModule("cron", &schedulerModule{scheduler: scheduler})

	logger.Info("contingency: wired",
		"providers", len(entries),
		"sinks", len(sinks),
	)
	return registry, nil
}
