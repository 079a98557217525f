package provider

import (
	"fmt"
	"slices"
	"sync"
)

// Entry pairs a descriptor with its generator in the registry.
type Entry struct {
	Descriptor
	Generator Generator
}

// Registry holds the configured providers in registration order and serves
// them sorted by ascending priority. The entry list is read-only during
// request handling; Refresh re-derives availability between requests
// (e.g. after credential rotation) but never reorders equal priorities.
// Ties keep registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry creates a registry from the given entries. Names must be
// unique and every entry must carry a generator.
func NewRegistry(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("registry: entry with empty name")
		}
		if e.Generator == nil {
			return nil, fmt.Errorf("%w: entry %q has nil generator", ErrNoProvider, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate provider name %q", e.Name)
		}
		seen[e.Name] = struct{}{}
	}

	r := &Registry{entries: slices.Clone(entries)}
	r.sortLocked()
	return r, nil
}

// sortLocked orders entries by ascending priority. The sort is stable so
// equal priorities keep their registration order.
func (r *Registry) sortLocked() {
	slices.SortStableFunc(r.entries, func(a, b Entry) int {
		return a.Priority - b.Priority
	})
}

// Ordered returns the available entries in ascending priority order.
// The returned slice is a copy and safe to hold across a request.
func (r *Registry) Ordered() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Available {
			out = append(out, e)
		}
	}
	return out
}

// Descriptors returns every entry's descriptor, available or not,
// in priority order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Descriptor
	}
	return out
}

// Lookup returns the entry with the given name, available or not.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Refresh re-derives availability for entries whose generator implements
// Candidate. Priority and order are left untouched; only the Available flag
// may change. Safe to call concurrently with Ordered.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if c, ok := r.entries[i].Generator.(Candidate); ok {
			r.entries[i].Available = c.Describe().Available
		}
	}
}
