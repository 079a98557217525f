// Package gemini implements the provider.gemini module against the Google
// Generative Language REST API.
package gemini

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

// Provider implements the Gemini generateContent API as a sparkgen
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
		ID:  "provider.gemini",
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
	p.client = &http.Client{}

	p.creds = security.NewCredentialStore()
	if svc, ok := ctx.Service("security.credentials"); ok {
		if store, ok := svc.(*security.CredentialStore); ok {
			p.creds = store
		}
	}

	key := p.config.APIKey
	if key == "" {
		key = os.Getenv(p.config.APIKeyEnv)
	}
	if key != "" {
		p.creds.Set("gemini", key)
	}
	if !p.creds.Has("gemini") {
		p.logger.Warn("no API key configured, provider unavailable")
	}

	ctx.RegisterService("provider.gemini", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.Model == "" {
		return errors.New("provider.gemini: model is required")
	}
	if p.config.Priority <= 0 {
		return errors.New("provider.gemini: priority must be positive")
	}
	return nil
}

// ModelName implements provider.Generator.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// Describe implements provider.Candidate.
func (p *Provider) Describe() provider.Descriptor {
	return provider.Descriptor{
		Name:       "gemini",
		Priority:   p.config.Priority,
		CostWeight: p.config.CostWeight,
		Available:  p.creds.Has("gemini"),
	}
}
