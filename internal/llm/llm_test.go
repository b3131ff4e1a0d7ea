package llm

import (
	"log/slog"
	"testing"

	"github.com/bimmerbailey/templar/internal/config"
)

func testConfig(provider string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider: provider,
			Ollama: config.OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "llama3.2",
			},
		},
	}
}

func TestNewProvider(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name    string
		cfg     *config.Config
		logger  *slog.Logger
		wantErr bool
	}{
		{"ollama provider", testConfig("ollama"), logger, false},
		{"case insensitive", testConfig("Ollama"), logger, false},
		{"unknown provider", testConfig("gpt-next"), logger, true},
		{"empty provider", testConfig(""), logger, true},
		{"nil config", nil, logger, true},
		{"nil logger", testConfig("ollama"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg, tt.logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && provider == nil {
				t.Fatal("NewProvider() returned nil provider without error")
			}
		})
	}
}
