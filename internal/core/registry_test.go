package core

import "testing"

type simpleModule struct {
	id ModuleID
}

func (m *simpleModule) ModuleInfo() ModuleInfo {
	id := m.id
	return ModuleInfo{
		ID:  id,
		New: func() Module { return &simpleModule{id: id} },
	}
}

func TestRegisterModule_Duplicate(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&simpleModule{id: "test.dup"})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&simpleModule{id: "test.dup"})
}

func TestRegisterModule_EmptyID(t *testing.T) {
	t.Cleanup(resetRegistry)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty module ID")
		}
	}()
	RegisterModule(&simpleModule{id: ""})
}

func TestGetModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&simpleModule{id: "test.get"})

	info, ok := GetModule("test.get")
	if !ok {
		t.Fatal("expected module to be found")
	}
	if info.ID != "test.get" {
		t.Errorf("ID = %q, want test.get", info.ID)
	}

	if _, ok := GetModule("test.missing"); ok {
		t.Error("unexpected module for unknown ID")
	}
}

func TestGetModules_Sorted(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&simpleModule{id: "store.sqlite"})
	RegisterModule(&simpleModule{id: "provider.openai"})
	RegisterModule(&simpleModule{id: "gateway.http"})

	mods := GetModules()
	if len(mods) != 3 {
		t.Fatalf("modules = %d, want 3", len(mods))
	}

	want := []ModuleID{"gateway.http", "provider.openai", "store.sqlite"}
	for i, mod := range mods {
		if mod.ID != want[i] {
			t.Errorf("mods[%d].ID = %q, want %q", i, mod.ID, want[i])
		}
	}
}

func TestGetModulesByNamespace(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&simpleModule{id: "provider.openai"})
	RegisterModule(&simpleModule{id: "provider.gemini"})
	RegisterModule(&simpleModule{id: "store.sqlite"})

	providers := GetModulesByNamespace("provider")
	if len(providers) != 2 {
		t.Fatalf("providers = %d, want 2", len(providers))
	}
	if providers[0].ID != "provider.gemini" || providers[1].ID != "provider.openai" {
		t.Errorf("providers = [%s, %s]", providers[0].ID, providers[1].ID)
	}

	if got := GetModulesByNamespace("channel"); len(got) != 0 {
		t.Errorf("unexpected modules for empty namespace: %v", got)
	}
}
