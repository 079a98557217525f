package openai

// Config holds the configuration for the OpenAI provider module.
type Config struct {
	APIKey     string  `yaml:"api_key"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	Model      string  `yaml:"model"`
	BaseURL    string  `yaml:"base_url"`
	Priority   int     `yaml:"priority"`
	CostWeight float64 `yaml:"cost_weight"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Priority == 0 {
		c.Priority = 1
	}
	if c.CostWeight == 0 {
		c.CostWeight = 1.0
	}
}
