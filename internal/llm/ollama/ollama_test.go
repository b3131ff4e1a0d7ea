package ollama

import (
	"context"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewRequiresLogger(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestNewDefaultsModel(t *testing.T) {
	p, err := New(Config{Host: "http://localhost:11434"}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.config.Model != "llama3.2" {
		t.Errorf("model = %q, want llama3.2", p.config.Model)
	}
}

func TestNewRejectsInvalidHost(t *testing.T) {
	if _, err := New(Config{Host: "://not-a-url"}, testLogger()); err == nil {
		t.Fatal("expected error for invalid host")
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	p, err := New(Config{Host: "http://localhost:11434"}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Chat(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
