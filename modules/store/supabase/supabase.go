// Package supabase implements a Supabase-backed record sink. Generations
// land in the copies table and fallback events in ai_contingency_logs, via
// the PostgREST API.
package supabase

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/storyspark/sparkgen/internal/core"
	"github.com/storyspark/sparkgen/internal/record"
	"github.com/storyspark/sparkgen/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ record.Sink       = (*store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Module wires the Supabase sink into the app.
type Module struct {
	config Config
	logger *slog.Logger
	store  *store
}

// store implements record.Sink over the PostgREST API.
type store struct {
	baseURL string
	client  *http.Client
	creds   *security.CredentialStore
	logger  *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.supabase",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("supabase: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	creds := credentialStore(ctx)
	key := m.config.APIKey
	if key == "" {
		key = os.Getenv(m.config.APIKeyEnv)
	}
	if key != "" {
		creds.Set("supabase", key)
	}
	if !creds.Has("supabase") {
		m.logger.Warn("no service key configured, writes will be dropped")
	}

	m.store = &store{
		baseURL: strings.TrimSuffix(m.config.URL, "/"),
		// Write deadlines come from the record gateway context.
		client: &http.Client{},
		creds:  creds,
		logger: ctx.Logger,
	}

	ctx.RegisterService("store.supabase", m.store)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Name implements record.Sink.
func (s *store) Name() string { return "supabase" }

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
