package provider

import "time"

// GenerationRequest is the input to a single orchestrated generation call.
// It is immutable once constructed and owned by the caller for the duration
// of one Execute call.
type GenerationRequest struct {
	// Prompt is the user prompt. Must be non-empty.
	Prompt string `json:"prompt"`

	// SystemPrompt is an optional system instruction sent alongside the prompt.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens caps the generated output length. Must be positive.
	MaxTokens int `json:"max_tokens"`

	// Temperature is the sampling temperature in [0, 2].
	Temperature float64 `json:"temperature"`

	// UserID identifies the requesting user.
	UserID string `json:"user_id"`

	// Context is a free-form tag describing the calling surface
	// (e.g. "composer_simplified_mode").
	Context string `json:"context,omitempty"`
}

// GenerationResult is the output of a successful adapter call. It is
// produced exactly once per success and never mutated afterwards.
type GenerationResult struct {
	Content    string        `json:"content"`
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	TokensUsed int           `json:"tokens_used"`
	Latency    time.Duration `json:"latency_ms"`
}

// Attempt records one failed provider invocation within an orchestration call.
type Attempt struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

// GenerationFailure is the typed end-state returned when providers could not
// produce a result. Terminal is true when every available provider was
// exhausted; false when the caller cancelled mid-flight.
type GenerationFailure struct {
	Attempts []Attempt `json:"attempts"`
	Terminal bool      `json:"terminal"`
}

// Outcome is the result of one orchestrated generation call. Callers branch
// on Success; exactly one of Result and Failure is meaningful.
type Outcome struct {
	Success bool
	Result  GenerationResult
	Failure *GenerationFailure
}

// Descriptor describes one configured provider in the registry.
// Lower Priority is tried first. CostWeight is informational.
type Descriptor struct {
	Name       string  `json:"name"`
	Priority   int     `json:"priority"`
	CostWeight float64 `json:"cost_weight"`
	Available  bool    `json:"available"`
}

// FallbackEvent is emitted when a request succeeds on a provider other than
// the first in priority order. It mirrors one row of the contingency log.
type FallbackEvent struct {
	RequestID        string    `json:"request_id"`
	OriginalProvider string    `json:"original_provider"`
	FallbackProvider string    `json:"fallback_provider"`
	Reason           string    `json:"reason"`
	UserID           string    `json:"user_id,omitempty"`
	At               time.Time `json:"at"`
}

// ProgressKind identifies a progress event type during one Execute call.
type ProgressKind string

// Progress event kinds, in the order they can occur.
const (
	ProgressAttemptStarted ProgressKind = "attempt_started"
	ProgressAttemptFailed  ProgressKind = "attempt_failed"
	ProgressDone           ProgressKind = "done"
	ProgressFailed         ProgressKind = "failed"
)

// ProgressEvent describes one step of an in-flight orchestration call,
// for callers that surface live generation progress.
type ProgressEvent struct {
	Kind     ProgressKind `json:"kind"`
	Provider string       `json:"provider,omitempty"`
	ErrKind  ErrorKind    `json:"error_kind,omitempty"`
	Message  string       `json:"message,omitempty"`
}
