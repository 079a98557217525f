// Package record persists accepted generations and fallback events to one
// or more storage sinks, best-effort. Writes never block or fail the
// generation path: sink errors are logged and dropped.
package record

import (
	"context"
	"time"

	"github.com/storyspark/sparkgen/internal/provider"
)

// DefaultCostCents is the flat per-generation cost charged to a user's
// credit balance. Actual provider spend is tracked separately by the sinks
// that care about it.
const DefaultCostCents = 160

// Meta carries the request-side fields of a generation record that the
// orchestrator does not know about.
type Meta struct {
	UserID     string `json:"user_id"`
	CopyType   string `json:"copy_type,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Prompt     string `json:"prompt"`
}

// Generation is one append-only row of generation history. Records are
// never mutated after creation; an edit is a new record.
type Generation struct {
	UserID     string    `json:"user_id"`
	CopyType   string    `json:"copy_type,omitempty"`
	TemplateID string    `json:"template_id,omitempty"`
	Tone       string    `json:"tone,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	Prompt     string    `json:"prompt"`
	Output     string    `json:"output"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	TokensIn   int       `json:"tokens_in"`
	TokensOut  int       `json:"tokens_out"`
	CostCents  int       `json:"cost_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink is one independent persistence target. Implementations live in
// separate modules (e.g. store.sqlite, store.supabase) and must be safe
// for concurrent use.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// SaveGeneration writes one generation record.
	SaveGeneration(ctx context.Context, g Generation) error

	// SaveFallbackEvent writes one contingency-log row.
	SaveFallbackEvent(ctx context.Context, ev provider.FallbackEvent) error
}

// newGeneration builds a record from a successful result and its request
// metadata. Token counts fall back to the shared character-count estimator
// when the backend did not report usage, so records stay comparable.
func newGeneration(result provider.GenerationResult, meta Meta, at time.Time) Generation {
	tokensOut := result.TokensUsed
	if tokensOut == 0 {
		tokensOut = provider.EstimateTokens(result.Content)
	}
	return Generation{
		UserID:     meta.UserID,
		CopyType:   meta.CopyType,
		TemplateID: meta.TemplateID,
		Tone:       meta.Tone,
		Platform:   meta.Platform,
		Prompt:     meta.Prompt,
		Output:     result.Content,
		Provider:   result.Provider,
		Model:      result.Model,
		TokensIn:   provider.EstimateTokens(meta.Prompt),
		TokensOut:  tokensOut,
		CostCents:  DefaultCostCents,
		CreatedAt:  at,
	}
}
