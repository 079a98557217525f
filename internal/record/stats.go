package record

import "context"

// ContingencyStats summarizes fallback activity over a trailing window.
type ContingencyStats struct {
	WindowDays int            `json:"window_days"`
	Total      int            `json:"total"`
	ByOriginal map[string]int `json:"by_original_provider"`
	ByFallback map[string]int `json:"by_fallback_provider"`
}

// StatsReader is implemented by sinks that can aggregate their stored
// fallback events. The admin API picks the first sink that implements it.
type StatsReader interface {
	ContingencyStats(ctx context.Context, days int) (ContingencyStats, error)
}
