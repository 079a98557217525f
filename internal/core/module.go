// Package core provides the module system foundation for sparkgen.
// Modules (provider adapters, persistence sinks, the HTTP gateway) register
// themselves at init time and are instantiated, configured, and started by
// the App according to the loaded configuration.
package core

// ModuleID uniquely identifies a module, namespaced by kind
// (e.g. "provider.openai", "store.sqlite", "gateway.http").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface all modules implement.
// Optional lifecycle behavior is expressed through the interfaces
// in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
