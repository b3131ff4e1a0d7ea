package follow

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Helper function to create a temporary log file
func createTempLogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return path
}

// Helper function to collect handled lines (thread-safe)
func collectingHandler() (Handler, func() []string) {
	var mu sync.Mutex
	var lines []string

	handler := func(line string) error {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
		return nil
	}

	get := func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(lines))
		copy(out, lines)
		return out
	}

	return handler, get
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFollowerFromStart(t *testing.T) {
	path := createTempLogFile(t, "first line\nsecond line\n")
	handler, lines := collectingHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower := New(Options{
		FilePath:  path,
		FromStart: true,
		Handler:   handler,
	})

	done := make(chan error, 1)
	go func() { done <- follower.Run(ctx) }()

	waitFor(t, func() bool { return len(lines()) == 2 })
	got := lines()
	if got[0] != "first line" || got[1] != "second line" {
		t.Errorf("lines = %v", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestFollowerReceivesAppendedLines(t *testing.T) {
	path := createTempLogFile(t, "existing line\n")
	handler, lines := collectingHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower := New(Options{
		FilePath: path,
		Handler:  handler,
	})

	done := make(chan error, 1)
	go func() { done <- follower.Run(ctx) }()

	// Give the watcher a moment to attach before appending.
	time.Sleep(100 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("appended line\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	waitFor(t, func() bool { return len(lines()) == 1 })
	if got := lines(); got[0] != "appended line" {
		t.Errorf("line = %q, want %q", got[0], "appended line")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestFollowerSkipsExistingContentByDefault(t *testing.T) {
	path := createTempLogFile(t, "old content\n")
	handler, lines := collectingHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower := New(Options{FilePath: path, Handler: handler})
	done := make(chan error, 1)
	go func() { done <- follower.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	if got := lines(); len(got) != 0 {
		t.Errorf("handler saw existing content: %v", got)
	}

	cancel()
	<-done
}

func TestFollowerMissingFile(t *testing.T) {
	follower := New(Options{
		FilePath: filepath.Join(t.TempDir(), "missing.log"),
		Handler:  func(string) error { return nil },
	})
	if err := follower.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
