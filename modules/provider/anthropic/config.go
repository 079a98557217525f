package anthropic

// defaultModel is the model used when none is specified.
// Pinned to a dated release for reproducibility.
const defaultModel = "claude-3-5-haiku-20241022"

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey     string  `yaml:"api_key"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	Model      string  `yaml:"model"`
	BaseURL    string  `yaml:"base_url"`
	Priority   int     `yaml:"priority"`
	CostWeight float64 `yaml:"cost_weight"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if c.Priority == 0 {
		c.Priority = 2
	}
	if c.CostWeight == 0 {
		c.CostWeight = 1.2
	}
}
