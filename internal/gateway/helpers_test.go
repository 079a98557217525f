package gateway

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/storyspark/sparkgen/internal/provider"
	"github.com/storyspark/sparkgen/internal/provider/providertest"
	"github.com/storyspark/sparkgen/internal/record"
	"gopkg.in/yaml.v3"
)

func mustYAMLNode(t *testing.T, raw string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	return node.Content[0]
}

// newTestRegistry creates a registry from mock candidates.
func newTestRegistry(t *testing.T, entries ...provider.Entry) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(entries)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func mockEntry(name string, priority int, content string) provider.Entry {
	mock := providertest.Static(provider.Descriptor{
		Name:      name,
		Priority:  priority,
		Available: true,
	}, content)
	return provider.Entry{Descriptor: mock.Describe(), Generator: mock}
}

func failingEntry(name string, priority int, err error) provider.Entry {
	mock := providertest.Failing(provider.Descriptor{
		Name:      name,
		Priority:  priority,
		Available: true,
	}, err)
	return provider.Entry{Descriptor: mock.Describe(), Generator: mock}
}

// memSink collects records in memory for assertions.
type memSink struct {
	mu          sync.Mutex
	generations []record.Generation
}

func (s *memSink) Name() string { return "mem" }

func (s *memSink) SaveGeneration(_ context.Context, g record.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations = append(s.generations, g)
	return nil
}

func (s *memSink) SaveFallbackEvent(_ context.Context, _ provider.FallbackEvent) error {
	return nil
}

func (s *memSink) Generations() []record.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Generation, len(s.generations))
	copy(out, s.generations)
	return out
}

// newTestGateway assembles a gateway with a real orchestrator over the
// given registry, skipping the module lifecycle.
func newTestGateway(t *testing.T, reg *provider.Registry, sink record.Sink) (*Gateway, *record.Gateway) {
	t.Helper()

	var sinks []record.Sink
	if sink != nil {
		sinks = append(sinks, sink)
	}
	recorder := record.NewGateway(sinks)

	g := &Gateway{
		config:       Config{Auth: AuthConfig{BearerToken: "test-token"}},
		logger:       slog.Default(),
		registry:     reg,
		orchestrator: provider.NewOrchestrator(reg, provider.Policy{}),
		recorder:     recorder,
	}
	g.config.defaults()
	return g, recorder
}
