// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/storyspark/sparkgen/internal/provider"
)

// MockGenerator is a configurable test double for provider.Candidate.
// Set the Func fields to control behavior. Unset funcs panic on call.
// All methods are safe for concurrent use.
type MockGenerator struct {
	GenerateFunc  func(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error)
	DescribeFunc  func() provider.Descriptor
	ModelNameFunc func() string

	mu            sync.Mutex
	GenerateCalls int
}

// Generate delegates to GenerateFunc and tracks call count.
func (m *MockGenerator) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	m.mu.Lock()
	m.GenerateCalls++
	m.mu.Unlock()
	return m.GenerateFunc(ctx, req)
}

// Describe delegates to DescribeFunc.
func (m *MockGenerator) Describe() provider.Descriptor {
	return m.DescribeFunc()
}

// ModelName delegates to ModelNameFunc.
func (m *MockGenerator) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock-model"
	}
	return m.ModelNameFunc()
}

// Calls returns the number of Generate invocations so far.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GenerateCalls
}

// Static returns a mock that always succeeds with the given content under
// the given descriptor.
func Static(desc provider.Descriptor, content string) *MockGenerator {
	return &MockGenerator{
		GenerateFunc: func(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
			return provider.GenerationResult{
				Content:  content,
				Provider: desc.Name,
				Model:    "mock-model",
			}, nil
		},
		DescribeFunc: func() provider.Descriptor { return desc },
	}
}

// Failing returns a mock that always fails with err under the given
// descriptor.
func Failing(desc provider.Descriptor, err error) *MockGenerator {
	return &MockGenerator{
		GenerateFunc: func(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
			return provider.GenerationResult{}, err
		},
		DescribeFunc: func() provider.Descriptor { return desc },
	}
}

// Interface guard.
var _ provider.Candidate = (*MockGenerator)(nil)
