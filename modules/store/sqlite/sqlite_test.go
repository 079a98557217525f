package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/record"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{
		config: Config{
			Path:        filepath.Join(dir, "test.db"),
			BusyTimeout: defaultBusyTimeout,
		},
	}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)

	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})

	return m
}

func testGeneration(userID string) record.Generation {
	return record.Generation{
		UserID:    userID,
		CopyType:  "instagram_post",
		Tone:      "casual",
		Platform:  "instagram",
		Prompt:    "write a post about coffee",
		Output:    "Coffee first, questions later.",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		TokensIn:  8,
		TokensOut: 12,
		CostCents: record.DefaultCostCents,
		CreatedAt: time.Now().UTC(),
	}
}

func TestSaveGeneration(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	if err := m.store.SaveGeneration(ctx, testGeneration("u1")); err != nil {
		t.Fatalf("save generation: %v", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations WHERE user_id = ?", "u1").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	var prov, output string
	var cost int
	err := m.db.QueryRowContext(ctx,
		"SELECT provider, output, cost_cents FROM generations WHERE user_id = ?", "u1",
	).Scan(&prov, &output, &cost)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if prov != "openai" {
		t.Errorf("provider = %q, want openai", prov)
	}
	if output != "Coffee first, questions later." {
		t.Errorf("output = %q", output)
	}
	if cost != record.DefaultCostCents {
		t.Errorf("cost_cents = %d, want %d", cost, record.DefaultCostCents)
	}
}

func TestSaveGeneration_ZeroCreatedAt(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	g := testGeneration("u2")
	g.CreatedAt = time.Time{}
	if err := m.store.SaveGeneration(ctx, g); err != nil {
		t.Fatalf("save generation: %v", err)
	}

	var createdAt string
	if err := m.db.QueryRowContext(ctx, "SELECT created_at FROM generations WHERE user_id = ?", "u2").Scan(&createdAt); err != nil {
		t.Fatalf("select: %v", err)
	}
	if createdAt == "" {
		t.Error("created_at is empty, want a timestamp")
	}
}

func TestSaveFallbackEvent(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	ev := provider.FallbackEvent{
		RequestID:        "req-1",
		OriginalProvider: "openai",
		FallbackProvider: "anthropic",
		Reason:           "upstream 503",
		UserID:           "u1",
		At:               time.Now().UTC(),
	}
	if err := m.store.SaveFallbackEvent(ctx, ev); err != nil {
		t.Fatalf("save fallback event: %v", err)
	}

	var original, fallback, reason string
	err := m.db.QueryRowContext(ctx,
		"SELECT original_provider, fallback_provider, reason FROM fallback_events WHERE request_id = ?", "req-1",
	).Scan(&original, &fallback, &reason)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if original != "openai" || fallback != "anthropic" || reason != "upstream 503" {
		t.Errorf("row = (%q, %q, %q)", original, fallback, reason)
	}
}

func TestContingencyStats(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	now := time.Now().UTC()
	events := []provider.FallbackEvent{
		{RequestID: "r1", OriginalProvider: "openai", FallbackProvider: "anthropic", At: now},
		{RequestID: "r2", OriginalProvider: "openai", FallbackProvider: "gemini", At: now.Add(-time.Hour)},
		{RequestID: "r3", OriginalProvider: "anthropic", FallbackProvider: "gemini", At: now.Add(-2 * time.Hour)},
		// Outside the 7-day window, must not count.
		{RequestID: "r4", OriginalProvider: "openai", FallbackProvider: "anthropic", At: now.AddDate(0, 0, -10)},
	}
	for _, ev := range events {
		if err := m.store.SaveFallbackEvent(ctx, ev); err != nil {
			t.Fatalf("save fallback event %s: %v", ev.RequestID, err)
		}
	}

	stats, err := m.store.ContingencyStats(ctx, 7)
	if err != nil {
		t.Fatalf("contingency stats: %v", err)
	}

	if stats.WindowDays != 7 {
		t.Errorf("window days = %d, want 7", stats.WindowDays)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if got := stats.ByOriginal["openai"]; got != 2 {
		t.Errorf("by original openai = %d, want 2", got)
	}
	if got := stats.ByOriginal["anthropic"]; got != 1 {
		t.Errorf("by original anthropic = %d, want 1", got)
	}
	if got := stats.ByFallback["gemini"]; got != 2 {
		t.Errorf("by fallback gemini = %d, want 2", got)
	}
}

func TestContingencyStats_DefaultWindow(t *testing.T) {
	m := newTestModule(t)

	stats, err := m.store.ContingencyStats(context.Background(), 0)
	if err != nil {
		t.Fatalf("contingency stats: %v", err)
	}
	if stats.WindowDays != 7 {
		t.Errorf("window days = %d, want default 7", stats.WindowDays)
	}
	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
}

func TestPruneFallbackEvents(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := provider.FallbackEvent{RequestID: "old", OriginalProvider: "openai", FallbackProvider: "anthropic", At: now.AddDate(0, 0, -120)}
	fresh := provider.FallbackEvent{RequestID: "fresh", OriginalProvider: "openai", FallbackProvider: "anthropic", At: now}
	for _, ev := range []provider.FallbackEvent{old, fresh} {
		if err := m.store.SaveFallbackEvent(ctx, ev); err != nil {
			t.Fatalf("save fallback event: %v", err)
		}
	}

	pruned, err := m.store.PruneFallbackEvents(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fallback_events").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining = %d, want 1", count)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	m := newTestModule(t)

	if err := migrate(m.db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{BusyTimeout: -1}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for negative busy_timeout")
	}
}
