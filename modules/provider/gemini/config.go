package gemini

// Config holds the configuration for the Gemini provider module.
type Config struct {
	APIKey     string  `yaml:"api_key"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	Model      string  `yaml:"model"`
	BaseURL    string  `yaml:"base_url"`
	Priority   int     `yaml:"priority"`
	CostWeight float64 `yaml:"cost_weight"`

	// TopP and TopK shape sampling. The defaults mirror the values the
	// composer has always sent.
	TopP float64 `yaml:"top_p"`
	TopK int     `yaml:"top_k"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Priority == 0 {
		c.Priority = 3
	}
	if c.CostWeight == 0 {
		c.CostWeight = 0.5
	}
	if c.TopP == 0 {
		c.TopP = 0.8
	}
	if c.TopK == 0 {
		c.TopK = 10
	}
}
