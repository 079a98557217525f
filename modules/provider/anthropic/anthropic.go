// Package anthropic implements the provider.anthropic module, generating
// copy through the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"gopkg.in/yaml.v3"

	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/security"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module        = (*Anthropic)(nil)
	_ core.Configurable  = (*Anthropic)(nil)
	_ core.Provisioner   = (*Anthropic)(nil)
	_ core.Validator     = (*Anthropic)(nil)
	_ provider.Candidate = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module.
type Anthropic struct {
	config  Config
	logger  *slog.Logger
	creds   *security.CredentialStore
	baseOps []option.RequestOption
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.logger = ctx.Logger

	a.creds = security.NewCredentialStore()
	if svc, ok := ctx.Service("security.credentials"); ok {
		if store, ok := svc.(*security.CredentialStore); ok {
			a.creds = store
		}
	}

	key := a.config.APIKey
	if key == "" {
		key = os.Getenv(a.config.APIKeyEnv)
	}
	if key != "" {
		a.creds.Set("anthropic", key)
	}
	if !a.creds.Has("anthropic") {
		a.logger.Warn("no API key configured, provider unavailable")
	}

	// SDK-level retries are disabled; the orchestrator owns retry policy.
	a.baseOps = []option.RequestOption{option.WithMaxRetries(0)}
	if a.config.BaseURL != "" {
		a.baseOps = append(a.baseOps, option.WithBaseURL(a.config.BaseURL))
	}

	ctx.RegisterService("provider.anthropic", a)
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.Model == "" {
		return errors.New("provider.anthropic: model must not be empty")
	}
	if a.config.Priority <= 0 {
		return errors.New("provider.anthropic: priority must be positive")
	}
	return nil
}

// ModelName implements provider.Generator.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// Describe implements provider.Candidate.
func (a *Anthropic) Describe() provider.Descriptor {
	return provider.Descriptor{
		Name:       "anthropic",
		Priority:   a.config.Priority,
		CostWeight: a.config.CostWeight,
		Available:  a.creds.Has("anthropic"),
	}
}

// Generate implements provider.Generator. The SDK client is rebuilt per
// call from the current credential, so a rotated key applies immediately.
func (a *Anthropic) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	key, _ := a.creds.Get("anthropic")
	opts := append([]option.RequestOption{option.WithAPIKey(key)}, a.baseOps...)
	client := sdkanthropic.NewClient(opts...)

	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: sdkanthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	start := time.Now()
	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return provider.GenerationResult{}, mapError(err)
	}
	latency := time.Since(start)

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += tb.Text
		}
	}

	tokens := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	if tokens == 0 {
		tokens = provider.EstimateTokens(req.Prompt) + provider.EstimateTokens(text)
	}

	return provider.GenerationResult{
		Content:    text,
		Provider:   "anthropic",
		Model:      a.config.Model,
		TokensUsed: tokens,
		Latency:    latency,
	}, nil
}
