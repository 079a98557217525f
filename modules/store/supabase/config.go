package supabase

import "fmt"

const defaultAPIKeyEnv = "SUPABASE_SERVICE_KEY"

// Config holds the Supabase store module configuration.
type Config struct {
	// URL is the project base URL, e.g. https://xyzcompany.supabase.co.
	URL string `yaml:"url"`

	// APIKey is the service-role key. Prefer api_key_env over inlining it.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names the environment variable holding the key.
	// Defaults to SUPABASE_SERVICE_KEY.
	APIKeyEnv string `yaml:"api_key_env"`
}

func (c *Config) defaults() {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("supabase: url is required")
	}
	return nil
}
