package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
)

// store implements record.Sink and record.StatsReader backed by SQLite.
type store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Name implements record.Sink.
func (s *store) Name() string { return "sqlite" }

// SaveGeneration implements record.Sink.
func (s *store) SaveGeneration(ctx context.Context, g record.Generation) error {
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations
			(user_id, copy_type, template_id, tone, platform, prompt, output,
			 provider, model, tokens_in, tokens_out, cost_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.CopyType, g.TemplateID, g.Tone, g.Platform, g.Prompt, g.Output,
		g.Provider, g.Model, g.TokensIn, g.TokensOut, g.CostCents,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert generation: %w", err)
	}

	return nil
}

// SaveFallbackEvent implements record.Sink.
func (s *store) SaveFallbackEvent(ctx context.Context, ev provider.FallbackEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fallback_events
			(request_id, original_provider, fallback_provider, reason, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.RequestID, ev.OriginalProvider, ev.FallbackProvider, ev.Reason, ev.UserID,
		at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert fallback event: %w", err)
	}

	return nil
}

// ContingencyStats implements record.StatsReader. It aggregates fallback
// events newer than the trailing window.
func (s *store) ContingencyStats(ctx context.Context, days int) (record.ContingencyStats, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)

	stats := record.ContingencyStats{
		WindowDays: days,
		ByOriginal: make(map[string]int),
		ByFallback: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT original_provider, fallback_provider, COUNT(*)
		FROM fallback_events
		WHERE created_at >= ?
		GROUP BY original_provider, fallback_provider`,
		cutoff,
	)
	if err != nil {
		return record.ContingencyStats{}, fmt.Errorf("sqlite: query contingency stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var original, fallback string
		var count int
		if err := rows.Scan(&original, &fallback, &count); err != nil {
			return record.ContingencyStats{}, fmt.Errorf("sqlite: scan contingency stats: %w", err)
		}
		stats.Total += count
		stats.ByOriginal[original] += count
		stats.ByFallback[fallback] += count
	}
	if err := rows.Err(); err != nil {
		return record.ContingencyStats{}, fmt.Errorf("sqlite: iterate contingency stats: %w", err)
	}

	return stats, nil
}

// PruneFallbackEvents deletes fallback events older than the cutoff and
// returns the number of rows removed. Used by the retention cron job.
func (s *store) PruneFallbackEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM fallback_events WHERE created_at < ?",
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune fallback events: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}

	return n, nil
}
