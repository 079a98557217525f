package openrouter

// Config holds the configuration for the OpenRouter provider module.
type Config struct {
	APIKey     string  `yaml:"api_key"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	Model      string  `yaml:"model"`
	BaseURL    string  `yaml:"base_url"`
	Priority   int     `yaml:"priority"`
	CostWeight float64 `yaml:"cost_weight"`

	// Referer and Title are sent as the HTTP-Referer and X-Title
	// attribution headers OpenRouter uses for app rankings.
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "openai/gpt-4o-mini"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENROUTER_API_KEY"
	}
	if c.Priority == 0 {
		c.Priority = 4
	}
	if c.CostWeight == 0 {
		c.CostWeight = 1.0
	}
	if c.Referer == "" {
		c.Referer = "https://storyspark.app"
	}
	if c.Title == "" {
		c.Title = "StorySpark"
	}
}
