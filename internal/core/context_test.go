package core

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestAppContext_ForModule(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := NewAppContext(logger, "/data")
	child := ctx.ForModule("provider.openai")

	child.Logger.Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("provider.openai")) {
		t.Errorf("expected child logger to contain module ID, got: %s", buf.String())
	}
}

func TestAppContext_ServicesSharedAcrossDerivedContexts(t *testing.T) {
	ctx := NewAppContext(nil, "/data")
	child := ctx.ForModule("provider.openai")

	child.RegisterService("answer", 42)

	svc, ok := ctx.Service("answer")
	if !ok {
		t.Fatal("service registered on child not visible on parent")
	}
	if svc.(int) != 42 {
		t.Errorf("service = %v, want 42", svc)
	}

	if _, ok := ctx.Service("missing"); ok {
		t.Error("unexpected service for unknown name")
	}
}

func TestAppContext_LoadModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	provisioned := false
	validated := false

	RegisterModule(&trackingModule{
		id:          "test.loadmod",
		onProvision: func() { provisioned = true },
		onValidate:  func() { validated = true },
	})

	ctx := NewAppContext(nil, "/data")
	mod, err := ctx.LoadModule("test.loadmod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod == nil {
		t.Fatal("expected non-nil module")
	}
	if !provisioned {
		t.Error("expected Provision to be called")
	}
	if !validated {
		t.Error("expected Validate to be called")
	}
}

func TestAppContext_LoadModule_UnknownID(t *testing.T) {
	t.Cleanup(resetRegistry)

	ctx := NewAppContext(nil, "/data")
	_, err := ctx.LoadModule("does.not.exist")
	if err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestAppContext_LoadModule_ProvisionError(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{
		id:           "test.provfail",
		provisionErr: errors.New("provision boom"),
	})

	ctx := NewAppContext(nil, "/data")
	_, err := ctx.LoadModule("test.provfail")
	if err == nil {
		t.Fatal("expected error on provision failure")
	}
}

func TestAppContext_LoadModule_ValidateError(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{
		id:          "test.valfail",
		validateErr: errors.New("validate boom"),
	})

	ctx := NewAppContext(nil, "/data")
	_, err := ctx.LoadModule("test.valfail")
	if err == nil {
		t.Fatal("expected error on validate failure")
	}
}

func TestAppContext_LoadModule_ConfigureReceivesNode(t *testing.T) {
	t.Cleanup(resetRegistry)

	var gotValue string
	RegisterModule(&trackingModule{
		id: "test.configured",
		onConfigure: func(node *yaml.Node) error {
			var cfg struct {
				Value string `yaml:"value"`
			}
			if err := node.Decode(&cfg); err != nil {
				return err
			}
			gotValue = cfg.Value
			return nil
		},
	})

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("value: hello"), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ctx := NewAppContext(nil, "/data")
	ctx = ctx.WithModuleConfigs(map[string]yaml.Node{"test.configured": *node.Content[0]})

	if _, err := ctx.LoadModule("test.configured"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotValue != "hello" {
		t.Errorf("configured value = %q, want hello", gotValue)
	}
}

// trackingModule is a test helper that tracks lifecycle calls.
type trackingModule struct {
	id           ModuleID
	onConfigure  func(*yaml.Node) error
	onProvision  func()
	onValidate   func()
	provisionErr error
	validateErr  error
}

func (m *trackingModule) ModuleInfo() ModuleInfo {
	id := m.id
	return ModuleInfo{
		ID: id,
		New: func() Module {
			return &trackingModule{
				id:           id,
				onConfigure:  m.onConfigure,
				onProvision:  m.onProvision,
				onValidate:   m.onValidate,
				provisionErr: m.provisionErr,
				validateErr:  m.validateErr,
			}
		},
	}
}

func (m *trackingModule) Configure(node *yaml.Node) error {
	if m.onConfigure != nil {
		return m.onConfigure(node)
	}
	return nil
}

func (m *trackingModule) Provision(_ *AppContext) error {
	if m.onProvision != nil {
		m.onProvision()
	}
	return m.provisionErr
}

func (m *trackingModule) Validate() error {
	if m.onValidate != nil {
		m.onValidate()
	}
	return m.validateErr
}
