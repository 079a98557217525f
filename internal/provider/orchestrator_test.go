package provider_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/provider/providertest"
	"github.com/storyspark/sparkgen/internal/sanitize"
)

func desc(name string, priority int) provider.Descriptor {
	return provider.Descriptor{Name: name, Priority: priority, Available: true}
}

func newRegistry(t *testing.T, entries ...provider.Entry) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(entries)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func entry(c provider.Candidate) provider.Entry {
	return provider.Entry{Descriptor: c.Describe(), Generator: c}
}

func TestExecute_EmptyPrompt(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, entry(providertest.Static(desc("openai", 1), "hi")))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	_, err := orch.Execute(context.Background(), provider.GenerationRequest{})
	if !errors.Is(err, provider.ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
}

func TestExecute_MaxTokensDefaulted(t *testing.T) {
	t.Parallel()

	var seen int
	mock := &providertest.MockGenerator{
		GenerateFunc: func(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
			seen = req.MaxTokens
			return provider.GenerationResult{Content: "ok", Provider: "openai"}, nil
		},
		DescribeFunc: func() provider.Descriptor { return desc("openai", 1) },
	}
	reg := newRegistry(t, entry(mock))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	if _, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"}); err != nil {
		t.Fatal(err)
	}
	if seen != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", seen)
	}
}

func TestExecute_FirstProviderSucceeds(t *testing.T) {
	t.Parallel()

	first := providertest.Static(desc("openai", 1), "from openai")
	second := providertest.Static(desc("anthropic", 2), "from anthropic")
	reg := newRegistry(t, entry(first), entry(second))

	var fallbacks int
	orch := provider.NewOrchestrator(reg, provider.Policy{},
		provider.WithFallbackHook(func(provider.FallbackEvent) { fallbacks++ }),
	)

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if out.Result.Content != "from openai" {
		t.Errorf("content = %q, want %q", out.Result.Content, "from openai")
	}
	if out.Result.Provider != "openai" {
		t.Errorf("provider = %q, want %q", out.Result.Provider, "openai")
	}
	if second.Calls() != 0 {
		t.Errorf("second provider called %d times, want 0", second.Calls())
	}
	if fallbacks != 0 {
		t.Errorf("fallback events = %d, want 0", fallbacks)
	}
}

func TestExecute_FallbackOnFailure(t *testing.T) {
	t.Parallel()

	boom := fmt.Errorf("upstream 503: %w", provider.ErrTransport)
	first := providertest.Failing(desc("openai", 1), boom)
	second := providertest.Static(desc("anthropic", 2), "rescued")
	reg := newRegistry(t, entry(first), entry(second))

	var events []provider.FallbackEvent
	orch := provider.NewOrchestrator(reg, provider.Policy{},
		provider.WithFallbackHook(func(ev provider.FallbackEvent) { events = append(events, ev) }),
	)

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "hello", UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success || out.Result.Content != "rescued" {
		t.Fatalf("outcome = %+v, want success from anthropic", out)
	}

	if len(events) != 1 {
		t.Fatalf("fallback events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.OriginalProvider != "openai" || ev.FallbackProvider != "anthropic" {
		t.Errorf("event = %+v, want openai -> anthropic", ev)
	}
	if !strings.Contains(ev.Reason, "upstream 503") {
		t.Errorf("reason = %q, want original failure message", ev.Reason)
	}
	if ev.UserID != "u1" {
		t.Errorf("user = %q, want u1", ev.UserID)
	}
	if ev.RequestID == "" {
		t.Error("request id empty")
	}
}

func TestExecute_PriorityOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mk := func(name string, priority int, err error) *providertest.MockGenerator {
		return &providertest.MockGenerator{
			GenerateFunc: func(_ context.Context, _ provider.GenerationRequest) (provider.GenerationResult, error) {
				order = append(order, name)
				if err != nil {
					return provider.GenerationResult{}, err
				}
				return provider.GenerationResult{Content: name}, nil
			},
			DescribeFunc: func() provider.Descriptor { return desc(name, priority) },
		}
	}

	fail := errors.New("nope")
	// Registered out of priority order on purpose.
	reg := newRegistry(t,
		entry(mk("gemini", 3, fail)),
		entry(mk("openai", 1, fail)),
		entry(mk("anthropic", 2, fail)),
		entry(mk("openrouter", 4, nil)),
	)
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}

	want := []string{"openai", "anthropic", "gemini", "openrouter"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestExecute_AllExhausted(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t,
		entry(providertest.Failing(desc("openai", 1), fmt.Errorf("key revoked: %w", provider.ErrAuth))),
		entry(providertest.Failing(desc("anthropic", 2), fmt.Errorf("slow: %w", provider.ErrTimeout))),
	)
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Fatal("outcome success, want failure")
	}
	if out.Failure == nil || !out.Failure.Terminal {
		t.Fatalf("failure = %+v, want terminal", out.Failure)
	}
	if len(out.Failure.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(out.Failure.Attempts))
	}
	if out.Failure.Attempts[0].Kind != provider.KindAuth {
		t.Errorf("attempt[0].Kind = %q, want auth", out.Failure.Attempts[0].Kind)
	}
	if out.Failure.Attempts[1].Kind != provider.KindTimeout {
		t.Errorf("attempt[1].Kind = %q, want timeout", out.Failure.Attempts[1].Kind)
	}
}

func TestExecute_NoProviders(t *testing.T) {
	t.Parallel()

	unavailable := &providertest.MockGenerator{
		GenerateFunc: func(_ context.Context, _ provider.GenerationRequest) (provider.GenerationResult, error) {
			t.Error("unavailable provider was invoked")
			return provider.GenerationResult{}, nil
		},
		DescribeFunc: func() provider.Descriptor {
			return provider.Descriptor{Name: "openai", Priority: 1, Available: false}
		},
	}
	reg := newRegistry(t, entry(unavailable))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success || out.Failure == nil || !out.Failure.Terminal {
		t.Fatalf("outcome = %+v, want terminal failure", out)
	}
	if len(out.Failure.Attempts) != 0 {
		t.Errorf("attempts = %d, want 0", len(out.Failure.Attempts))
	}
}

func TestExecute_SingleAttemptPerProviderByDefault(t *testing.T) {
	t.Parallel()

	first := providertest.Failing(desc("openai", 1), errors.New("boom"))
	second := providertest.Static(desc("anthropic", 2), "ok")
	reg := newRegistry(t, entry(first), entry(second))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if first.Calls() != 1 {
		t.Errorf("first provider called %d times, want 1", first.Calls())
	}
}

func TestExecute_RetriesPerProvider(t *testing.T) {
	t.Parallel()

	var calls int
	flaky := &providertest.MockGenerator{
		GenerateFunc: func(_ context.Context, _ provider.GenerationRequest) (provider.GenerationResult, error) {
			calls++
			if calls < 3 {
				return provider.GenerationResult{}, fmt.Errorf("blip: %w", provider.ErrTransport)
			}
			return provider.GenerationResult{Content: "third time"}, nil
		},
		DescribeFunc: func() provider.Descriptor { return desc("openai", 1) },
	}
	reg := newRegistry(t, entry(flaky))
	orch := provider.NewOrchestrator(reg, provider.Policy{
		RetriesPerProvider: 3,
		RetryDelay:         time.Millisecond,
	})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.Result.Content != "third time" {
		t.Fatalf("outcome = %+v, want success on third attempt", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecute_AttemptTimeout(t *testing.T) {
	t.Parallel()

	slow := &providertest.MockGenerator{
		GenerateFunc: func(ctx context.Context, _ provider.GenerationRequest) (provider.GenerationResult, error) {
			<-ctx.Done()
			return provider.GenerationResult{}, fmt.Errorf("gave up: %w", provider.ErrTimeout)
		},
		DescribeFunc: func() provider.Descriptor { return desc("openai", 1) },
	}
	second := providertest.Static(desc("anthropic", 2), "fast")
	reg := newRegistry(t, entry(slow), entry(second))
	orch := provider.NewOrchestrator(reg, provider.Policy{AttemptTimeout: 20 * time.Millisecond})

	start := time.Now()
	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.Result.Content != "fast" {
		t.Fatalf("outcome = %+v, want fallback success", out)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("took %v, attempt timeout not enforced", elapsed)
	}
}

func TestExecute_CancellationAbandons(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	first := &providertest.MockGenerator{
		GenerateFunc: func(ctx context.Context, _ provider.GenerationRequest) (provider.GenerationResult, error) {
			cancel()
			<-ctx.Done()
			return provider.GenerationResult{}, ctx.Err()
		},
		DescribeFunc: func() provider.Descriptor { return desc("openai", 1) },
	}
	second := providertest.Static(desc("anthropic", 2), "should not run")
	reg := newRegistry(t, entry(first), entry(second))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(ctx, provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Fatal("outcome success, want abandoned failure")
	}
	if out.Failure.Terminal {
		t.Error("failure marked terminal, cancellation must be non-terminal")
	}
	if second.Calls() != 0 {
		t.Errorf("second provider called %d times after cancellation, want 0", second.Calls())
	}
}

func TestExecute_PreferredProvider(t *testing.T) {
	t.Parallel()

	first := providertest.Static(desc("openai", 1), "default")
	preferred := providertest.Static(desc("gemini", 3), "preferred")
	reg := newRegistry(t, entry(first), entry(preferred))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"},
		provider.WithPreferredProvider("gemini"))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.Result.Provider != "gemini" {
		t.Fatalf("outcome = %+v, want preferred gemini", out)
	}
	if first.Calls() != 0 {
		t.Errorf("default provider called %d times, want 0", first.Calls())
	}
}

func TestExecute_SanitizerApplied(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, entry(providertest.Static(desc("openai", 1), "**bold** copy")))
	orch := provider.NewOrchestrator(reg, provider.Policy{},
		provider.WithSanitizer(func(s string) string { return strings.ReplaceAll(s, "**", "") }),
	)

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Content != "bold copy" {
		t.Errorf("content = %q, want sanitized", out.Result.Content)
	}
}

func TestExecute_CleansLabeledMarkdownOutput(t *testing.T) {
	t.Parallel()

	only := providertest.Static(desc("openai", 1), "Copy: **Produto X** é ótimo!\n")
	reg := newRegistry(t, entry(only))
	orch := provider.NewOrchestrator(reg, provider.Policy{},
		provider.WithSanitizer(sanitize.Clean),
	)

	out, err := orch.Execute(context.Background(), provider.GenerationRequest{
		Prompt:      "Crie uma copy para um produto X",
		MaxTokens:   500,
		Temperature: 0.7,
		UserID:      "u1",
		Context:     "composer_simplified_mode",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if out.Result.Provider != "openai" {
		t.Errorf("provider = %q, want openai", out.Result.Provider)
	}
	if out.Result.Content != "Produto X é ótimo!" {
		t.Errorf("content = %q, want cleaned copy", out.Result.Content)
	}
}

func TestExecute_ProgressEvents(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t,
		entry(providertest.Failing(desc("openai", 1), fmt.Errorf("down: %w", provider.ErrTransport))),
		entry(providertest.Static(desc("anthropic", 2), "ok")),
	)
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	var kinds []provider.ProgressKind
	out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"},
		provider.WithProgress(func(ev provider.ProgressEvent) { kinds = append(kinds, ev.Kind) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}

	want := []provider.ProgressKind{
		provider.ProgressAttemptStarted,
		provider.ProgressAttemptFailed,
		provider.ProgressAttemptStarted,
		provider.ProgressDone,
	}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

// recordingObserver captures metric callbacks for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	started   int
	succeeded int
	failed    int
	fallbacks int
	exhausted int
}

func (r *recordingObserver) RequestStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) AttemptFailed(string, provider.ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func (r *recordingObserver) RequestSucceeded(string, int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
}

func (r *recordingObserver) FallbackActivated(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

func (r *recordingObserver) RequestExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted++
}

func TestExecute_ObserverCallbacks(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t,
		entry(providertest.Failing(desc("openai", 1), errors.New("down"))),
		entry(providertest.Static(desc("anthropic", 2), "ok")),
	)
	obs := &recordingObserver{}
	orch := provider.NewOrchestrator(reg, provider.Policy{}, provider.WithObserver(obs))

	if _, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"}); err != nil {
		t.Fatal(err)
	}

	if obs.started != 1 || obs.succeeded != 1 || obs.failed != 1 || obs.fallbacks != 1 || obs.exhausted != 0 {
		t.Errorf("observer = %+v, want 1 started / 1 succeeded / 1 failed / 1 fallback / 0 exhausted", obs)
	}
}

func TestExecute_ConcurrentRequests(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, entry(providertest.Static(desc("openai", 1), "ok")))
	orch := provider.NewOrchestrator(reg, provider.Policy{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := orch.Execute(context.Background(), provider.GenerationRequest{Prompt: "go"})
			if err != nil || !out.Success {
				t.Errorf("Execute: out=%+v err=%v", out, err)
			}
		}()
	}
	wg.Wait()
}
