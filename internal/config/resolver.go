package config

import (
	"slices"
	"strings"
)

// namespaceRank fixes the load order by subsystem: stores provision first so
// their sinks are registered before anything that records to them, then the
// provider adapters, with the HTTP gateway last. Stopping runs in reverse,
// so the gateway drains before any store closes its database. Unknown
// namespaces load between the providers and the gateway.
var namespaceRank = map[string]int{
	"store":    0,
	"provider": 1,
	"gateway":  3,
}

// Resolve returns the configured module IDs in load order: by namespace
// rank, then lexicographically within a namespace.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return ids
}

func rank(id string) int {
	ns, _, _ := strings.Cut(id, ".")
	if r, ok := namespaceRank[ns]; ok {
		return r
	}
	return 2
}
