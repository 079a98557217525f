package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// nopHandler is a slog.Handler that discards all log records.
// Enabled returns false so slog skips formatting entirely (zero cost).
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }

// Observer receives orchestration events for metrics collection.
// All methods may be called concurrently.
type Observer interface {
	RequestStarted()
	AttemptFailed(provider string, kind ErrorKind)
	RequestSucceeded(provider string, tokens int, latency time.Duration)
	FallbackActivated(from, to string)
	RequestExhausted()
}

// Policy configures the orchestrator's fallback behavior.
type Policy struct {
	// AttemptTimeout bounds each provider invocation. Default: 30s.
	AttemptTimeout time.Duration

	// RetriesPerProvider is the number of attempts against one provider
	// before falling back to the next. Defaults to 1; re-trying the same
	// provider with a delay is an opt-in extension.
	RetriesPerProvider int

	// RetryDelay is the pause between attempts against the same provider.
	// Only meaningful when RetriesPerProvider > 1. Default: 5s.
	RetryDelay time.Duration
}

func (p *Policy) defaults() {
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	if p.RetriesPerProvider <= 0 {
		p.RetriesPerProvider = 1
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 5 * time.Second
	}
}

// Orchestrator executes generation requests against the registry with
// sequential priority-ordered fallback. It holds no per-request state:
// concurrent Execute calls are fully independent, sharing only the
// read-only registry.
type Orchestrator struct {
	registry *Registry
	policy   Policy
	clean    func(string) string
	logger   *slog.Logger
	observer Observer

	onFallback func(FallbackEvent)

	// injectable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithLogger injects a structured logger. When omitted, all log output is
// silently discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSanitizer sets the output normalization function applied to every
// successful generation before the result is built.
func WithSanitizer(clean func(string) string) Option {
	return func(o *Orchestrator) { o.clean = clean }
}

// WithObserver injects a metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithFallbackHook registers a callback invoked whenever a request succeeds
// on a provider other than the first candidate. The hook runs on the
// calling goroutine and should not block.
func WithFallbackHook(fn func(FallbackEvent)) Option {
	return func(o *Orchestrator) { o.onFallback = fn }
}

// NewOrchestrator creates an orchestrator over the given registry.
func NewOrchestrator(reg *Registry, policy Policy, opts ...Option) *Orchestrator {
	policy.defaults()

	o := &Orchestrator{
		registry: reg,
		policy:   policy,
		clean:    func(s string) string { return s },
		now:      time.Now,
		sleep:    sleepCtx,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.New(nopHandler{})
	}

	return o
}

// ExecOption configures a single Execute call.
type ExecOption func(*execConfig)

type execConfig struct {
	preferred string
	progress  func(ProgressEvent)
}

// WithPreferredProvider promotes the named provider to the front of the
// candidate order for this call. Unknown names are ignored.
func WithPreferredProvider(name string) ExecOption {
	return func(c *execConfig) { c.preferred = name }
}

// WithProgress registers a per-call progress callback. Events are delivered
// on the calling goroutine, in order.
func WithProgress(fn func(ProgressEvent)) ExecOption {
	return func(c *execConfig) { c.progress = fn }
}

// Execute runs one generation request through the contingency flow:
// candidates are tried strictly sequentially in ascending priority order,
// each under its own timeout, until one succeeds or all are exhausted.
// Provider failures never surface as errors; they are recorded as attempt
// history inside a typed Outcome that callers branch on. The returned error
// is non-nil only for an empty prompt; a non-positive MaxTokens is defaulted
// to 1000.
//
// Cancellation of ctx abandons the flow cooperatively: the in-flight
// attempt is given up and the Outcome carries a non-terminal failure with
// the history so far.
func (o *Orchestrator) Execute(ctx context.Context, req GenerationRequest, opts ...ExecOption) (Outcome, error) {
	if req.Prompt == "" {
		return Outcome{}, ErrEmptyPrompt
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1000
	}

	var cfg execConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if o.observer != nil {
		o.observer.RequestStarted()
	}

	candidates := o.registry.Ordered()
	if cfg.preferred != "" {
		candidates = promote(candidates, cfg.preferred)
	}

	if len(candidates) == 0 {
		o.logger.Error("no available providers", "context", req.Context)
		if o.observer != nil {
			o.observer.RequestExhausted()
		}
		return exhausted(nil, cfg.progress), nil
	}

	requestID := uuid.NewString()
	var attempts []Attempt

	for i, entry := range candidates {
		if ctx.Err() != nil {
			return abandoned(attempts, cfg.progress), nil
		}

		result, err := o.tryProvider(ctx, entry, req, cfg.progress)
		if err == nil {
			result.Content = o.clean(result.Content)

			if i > 0 {
				o.activateFallback(candidates[0].Name, entry.Name, requestID, req.UserID, attempts)
			}
			if o.observer != nil {
				o.observer.RequestSucceeded(entry.Name, result.TokensUsed, result.Latency)
			}
			emit(cfg.progress, ProgressEvent{Kind: ProgressDone, Provider: entry.Name})

			o.logger.Info("generation succeeded",
				"request_id", requestID,
				"provider", entry.Name,
				"model", result.Model,
				"tokens", result.TokensUsed,
				"latency", result.Latency,
				"fallback", i > 0,
			)
			return Outcome{Success: true, Result: result}, nil
		}

		// Caller cancelled while the attempt was in flight: abandon without
		// blaming the provider beyond what was already recorded.
		if ctx.Err() != nil {
			attempts = appendAttempt(attempts, entry.Name, err)
			return abandoned(attempts, cfg.progress), nil
		}

		attempts = appendAttempt(attempts, entry.Name, err)
		kind := KindOf(err)
		if o.observer != nil {
			o.observer.AttemptFailed(entry.Name, kind)
		}
		emit(cfg.progress, ProgressEvent{
			Kind:     ProgressAttemptFailed,
			Provider: entry.Name,
			ErrKind:  kind,
			Message:  err.Error(),
		})

		if kind == KindAuth {
			// Recurs on every call until credentials are fixed.
			o.logger.Warn("provider credentials rejected, check configuration",
				"provider", entry.Name,
				"error", err,
			)
		} else {
			o.logger.Warn("provider failed, falling back",
				"provider", entry.Name,
				"kind", string(kind),
				"error", err,
			)
		}
	}

	o.logger.Error("all providers exhausted",
		"request_id", requestID,
		"attempts", len(attempts),
		"context", req.Context,
	)
	if o.observer != nil {
		o.observer.RequestExhausted()
	}
	return exhausted(attempts, cfg.progress), nil
}

// tryProvider runs up to RetriesPerProvider attempts against one entry,
// each bounded by AttemptTimeout. It returns the last error when every
// attempt failed.
func (o *Orchestrator) tryProvider(ctx context.Context, entry Entry, req GenerationRequest, progress func(ProgressEvent)) (GenerationResult, error) {
	var lastErr error

	for attempt := 0; attempt < o.policy.RetriesPerProvider; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if attempt > 0 {
			o.sleep(ctx, o.policy.RetryDelay)
			if ctx.Err() != nil {
				break
			}
		}

		emit(progress, ProgressEvent{Kind: ProgressAttemptStarted, Provider: entry.Name})

		attemptCtx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
		result, err := entry.Generator.Generate(attemptCtx, req)
		cancel()

		if err == nil {
			if result.Provider == "" {
				result.Provider = entry.Name
			}
			return result, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return GenerationResult{}, lastErr
}

// activateFallback emits the fallback event carrying the first candidate's
// failure reason, mirroring one contingency-log row.
func (o *Orchestrator) activateFallback(original, fallback, requestID, userID string, attempts []Attempt) {
	reason := ""
	if len(attempts) > 0 {
		reason = attempts[0].Message
	}

	if o.observer != nil {
		o.observer.FallbackActivated(original, fallback)
	}
	if o.onFallback != nil {
		o.onFallback(FallbackEvent{
			RequestID:        requestID,
			OriginalProvider: original,
			FallbackProvider: fallback,
			Reason:           reason,
			UserID:           userID,
			At:               o.now(),
		})
	}
}

func appendAttempt(attempts []Attempt, name string, err error) []Attempt {
	return append(attempts, Attempt{
		Provider: name,
		Kind:     KindOf(err),
		Message:  err.Error(),
	})
}

func exhausted(attempts []Attempt, progress func(ProgressEvent)) Outcome {
	emit(progress, ProgressEvent{Kind: ProgressFailed})
	return Outcome{Failure: &GenerationFailure{Attempts: attempts, Terminal: true}}
}

func abandoned(attempts []Attempt, progress func(ProgressEvent)) Outcome {
	emit(progress, ProgressEvent{Kind: ProgressFailed, Message: "cancelled"})
	return Outcome{Failure: &GenerationFailure{Attempts: attempts, Terminal: false}}
}

func emit(progress func(ProgressEvent), ev ProgressEvent) {
	if progress != nil {
		progress(ev)
	}
}

// promote moves the named entry to the front, keeping the rest in order.
func promote(entries []Entry, name string) []Entry {
	for i, e := range entries {
		if e.Name == name {
			out := make([]Entry, 0, len(entries))
			out = append(out, e)
			out = append(out, entries[:i]...)
			out = append(out, entries[i+1:]...)
			return out
		}
	}
	return entries
}

// sleepCtx pauses for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
