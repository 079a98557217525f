package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/storyspark/sparkgen/internal/core"
)

// Validate checks the structural validity of a Config. It verifies the
// version field, ensures modules are present, checks that all referenced
// module IDs exist in the registry, and bounds the contingency settings.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if !hasNamespace(cfg, "provider.") {
		errs = append(errs, errors.New("config: at least one provider.* module must be configured"))
	}

	errs = append(errs, validateContingency(cfg.Contingency)...)

	return errors.Join(errs...)
}

func hasNamespace(cfg *Config, prefix string) bool {
	for id := range cfg.Modules {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func validateContingency(c ContingencyConfig) []error {
	var errs []error
	if c.AttemptTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("config: contingency.attempt_timeout_seconds must not be negative, got %d", c.AttemptTimeoutSeconds))
	}
	if c.RetriesPerProvider < 0 {
		errs = append(errs, fmt.Errorf("config: contingency.retries_per_provider must not be negative, got %d", c.RetriesPerProvider))
	}
	if c.RetryDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("config: contingency.retry_delay_seconds must not be negative, got %d", c.RetryDelaySeconds))
	}
	return errs
}
