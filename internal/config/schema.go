// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for sparkgen.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir is the directory for local state (SQLite database, logs).
	// Defaults to the process working directory when empty.
	DataDir string `yaml:"data_dir,omitempty"`

	// Contingency tunes the fallback policy of the orchestrator.
	Contingency ContingencyConfig `yaml:"contingency,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.openai").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// ContingencyConfig is the fallback policy section. Zero values mean
// "use the built-in default".
type ContingencyConfig struct {
	// AttemptTimeoutSeconds bounds each provider invocation.
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds,omitempty"`

	// RetriesPerProvider is the number of attempts against one provider
	// before falling back. The default of one attempt per provider is the
	// standard behavior; raising it is an opt-in extension.
	RetriesPerProvider int `yaml:"retries_per_provider,omitempty"`

	// RetryDelaySeconds is the pause between attempts against the same
	// provider when RetriesPerProvider > 1.
	RetryDelaySeconds int `yaml:"retry_delay_seconds,omitempty"`
}

// AttemptTimeout returns the configured timeout as a duration, or zero
// when unset.
func (c ContingencyConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// RetryDelay returns the configured delay as a duration, or zero when unset.
func (c ContingencyConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}
