// Package openai implements the provider.openai module, generating copy
// through the OpenAI Chat Completions API.
package openai

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/security"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ core.Module        = (*Provider)(nil)
	_ core.Configurable  = (*Provider)(nil)
	_ core.Provisioner   = (*Provider)(nil)
	_ core.Validator     = (*Provider)(nil)
	_ provider.Candidate = (*Provider)(nil)
)

// Provider implements the OpenAI Chat Completions API as a sparkgen
// provider module.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
	creds  *security.CredentialStore
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	// The per-attempt deadline comes from the orchestrator's context, so
	// the client itself carries no hard timeout.
	p.client = &http.Client{}

	p.creds = credentialStore(ctx)
	key := p.config.APIKey
	if key == "" {
		key = os.Getenv(p.config.APIKeyEnv)
	}
	if key != "" {
		p.creds.Set("openai", key)
	}
	if !p.creds.Has("openai") {
		p.logger.Warn("no API key configured, provider unavailable")
	}

	ctx.RegisterService("provider.openai", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.Model == "" {
		return errors.New("provider.openai: model is required")
	}
	if p.config.Priority <= 0 {
		return errors.New("provider.openai: priority must be positive")
	}
	return nil
}

// ModelName implements provider.Generator.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// Describe implements provider.Candidate. Availability is re-derived from
// the credential store on every call so a registry refresh picks up
// rotated keys.
func (p *Provider) Describe() provider.Descriptor {
	return provider.Descriptor{
		Name:       "openai",
		Priority:   p.config.Priority,
		CostWeight: p.config.CostWeight,
		Available:  p.creds.Has("openai"),
	}
}

// credentialStore returns the shared credential store, or a private one
// when the security module is not wired (tests, minimal configs).
func credentialStore(ctx *core.AppContext) *security.CredentialStore {
	if svc, ok := ctx.Service("security.credentials"); ok {
		if store, ok := svc.(*security.CredentialStore); ok {
			return store
		}
	}
	return security.NewCredentialStore()
}
