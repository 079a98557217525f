// Package provider defines the Generator interface for AI copy backends,
// the priority-ordered registry, and the contingency orchestrator that
// executes generation requests with sequential provider fallback.
package provider

import "context"

// Generator is the interface for a single AI text-generation backend.
// Concrete implementations live in separate packages (e.g. provider.openai)
// and typically also implement core.Module for lifecycle management.
type Generator interface {
	// Generate issues exactly one text-generation call to the backend.
	// The context carries the per-attempt deadline set by the orchestrator;
	// implementations must honor it and translate raw transport, auth,
	// rate-limit, and deadline failures into the package sentinel errors.
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// Candidate is implemented by provider modules that can describe their own
// registry entry. The composition root collects Candidates from loaded
// modules to build the Registry.
type Candidate interface {
	Generator

	// Describe returns the current descriptor. Available is derived from
	// credential presence and is re-evaluated on each call, so a registry
	// refresh picks up rotated credentials without reloading the module.
	Describe() Descriptor
}
