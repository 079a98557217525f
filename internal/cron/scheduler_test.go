package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())

	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"})

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop without Start: %v", err)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRefresher) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func TestRegistryRefreshJob(t *testing.T) {
	t.Parallel()

	r := &countingRefresher{}
	j := &RegistryRefreshJob{Registry: r, Logger: slog.Default()}

	if j.Name() != "registry_refresh" {
		t.Errorf("name = %q", j.Name())
	}
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("schedule = %q", j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", r.calls)
	}
}

func TestRegistryRefreshJob_CancelledContext(t *testing.T) {
	t.Parallel()

	j := &RegistryRefreshJob{Registry: &countingRefresher{}, Logger: slog.Default()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

type fakePruner struct {
	gotCutoff time.Time
	pruned    int64
	err       error
}

func (p *fakePruner) PruneFallbackEvents(_ context.Context, olderThan time.Time) (int64, error) {
	p.gotCutoff = olderThan
	return p.pruned, p.err
}

func TestFallbackRetentionJob(t *testing.T) {
	t.Parallel()

	p := &fakePruner{pruned: 7}
	j := &FallbackRetentionJob{Store: p, RetentionDays: 30, Logger: slog.Default()}

	if j.Name() != "fallback_retention" {
		t.Errorf("name = %q", j.Name())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCutoff := time.Now().UTC().AddDate(0, 0, -30)
	if diff := wantCutoff.Sub(p.gotCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", p.gotCutoff, wantCutoff)
	}
}

func TestFallbackRetentionJob_DefaultWindow(t *testing.T) {
	t.Parallel()

	p := &fakePruner{}
	j := &FallbackRetentionJob{Store: p, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	wantCutoff := time.Now().UTC().AddDate(0, 0, -90)
	if diff := wantCutoff.Sub(p.gotCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", p.gotCutoff, wantCutoff)
	}
}

func TestFallbackRetentionJob_Error(t *testing.T) {
	t.Parallel()

	p := &fakePruner{err: errors.New("disk full")}
	j := &FallbackRetentionJob{Store: p, Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error from store")
	}
}
