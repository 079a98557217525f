package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Refresher is the subset of the provider registry needed by cron jobs.
// Defined here to avoid a dependency on the provider package.
type Refresher interface {
	Refresh()
}

// RegistryRefreshJob re-derives provider availability so rotated or newly
// provisioned credentials are picked up without a restart.
type RegistryRefreshJob struct {
	Registry     Refresher
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

var _ Job = (*RegistryRefreshJob)(nil)

// Name implements Job.
func (j *RegistryRefreshJob) Name() string { return "registry_refresh" }

// Schedule implements Job.
func (j *RegistryRefreshJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run refreshes provider availability.
func (j *RegistryRefreshJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: registry refresh cancelled: %w", ctx.Err())
	}
	j.Registry.Refresh()
	j.Logger.Debug("cron: provider availability refreshed")
	return nil
}

// EventPruner is implemented by sinks that can delete old fallback events.
type EventPruner interface {
	PruneFallbackEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// FallbackRetentionJob deletes contingency-log rows older than the
// retention window. Only the local store prunes; the remote store owns its
// own retention.
type FallbackRetentionJob struct {
	Store         EventPruner
	RetentionDays int // <= 0 means default 90
	Logger        *slog.Logger
	ScheduleExpr  string // empty = default "30 3 * * *"
}

var _ Job = (*FallbackRetentionJob)(nil)

// Name implements Job.
func (j *FallbackRetentionJob) Name() string { return "fallback_retention" }

// Schedule implements Job.
func (j *FallbackRetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 3 * * *"
}

// Run prunes fallback events past the retention window.
func (j *FallbackRetentionJob) Run(ctx context.Context) error {
	days := j.RetentionDays
	if days <= 0 {
		days = 90
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	pruned, err := j.Store.PruneFallbackEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: pruning fallback events: %w", err)
	}
	if pruned > 0 {
		j.Logger.Info("cron: pruned fallback events", "count", pruned, "cutoff", cutoff)
	}
	return nil
}
