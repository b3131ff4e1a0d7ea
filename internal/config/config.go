// Package config provides configuration types and helpers for templar.
package config

// Config holds the application-wide configuration.
type Config struct {
	Format   string         `mapstructure:"format"`
	Verbose  bool           `mapstructure:"verbose"`
	StateDir string         `mapstructure:"state_dir"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Learning LearningConfig `mapstructure:"learning"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM to use. Currently: "ollama".
	Provider string `mapstructure:"provider"`

	// Global settings applied to all providers. Template mining wants
	// deterministic output, so the default temperature is 0.
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	Ollama OllamaConfig `mapstructure:"ollama"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`  // API endpoint
	Model string `mapstructure:"model"` // Default model name
}

// LearningConfig tunes the per-line learning pipeline.
type LearningConfig struct {
	// RepairRetries bounds how many refinement rounds a rejected candidate
	// gets before the line is declared rejected. Default 1.
	RepairRetries int `mapstructure:"repair_retries"`

	// SampleLines is how many leading lines are sent to the classifier
	// to identify the log source. Default 12.
	SampleLines int `mapstructure:"sample_lines"`

	// ReviewDirectives are extra operator instructions appended to every
	// template review request.
	ReviewDirectives []string `mapstructure:"review_directives"`
}
