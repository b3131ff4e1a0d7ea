// Package follow provides live log file following.
//
// It implements "tail -f" like behavior with log rotation detection, feeding
// each appended line to a handler so the learning pipeline can run against a
// growing file.
package follow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives each new line appended to the followed file.
type Handler func(line string) error

// Options configures the follower behavior.
type Options struct {
	FilePath     string  // Path to the log file
	FromStart    bool    // Process existing content before following
	FollowRotate bool    // Whether to follow through log rotations
	Handler      Handler // Called for each line
}

// Follower watches a log file and streams appended lines to its handler.
type Follower struct {
	opts    Options
	file    *os.File
	offset  int64
	watcher *fsnotify.Watcher
}

// New creates a new Follower with the given options.
func New(opts Options) *Follower {
	return &Follower{opts: opts}
}

// Run starts following. It blocks until context is cancelled or an error occurs.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.close()

	if f.opts.FromStart {
		if err := f.readNewContent(); err != nil {
			return fmt.Errorf("failed to read existing content: %w", err)
		}
	}

	if err := f.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer f.watcher.Close()

	return f.watch(ctx)
}

// openFile opens the log file and positions the read offset.
func (f *Follower) openFile() error {
	file, err := os.Open(f.opts.FilePath)
	if err != nil {
		return err
	}
	f.file = file

	if f.opts.FromStart {
		f.offset = 0
		return nil
	}

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	f.offset = stat.Size()
	return nil
}

// setupWatcher initializes the fsnotify watcher.
func (f *Follower) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f.watcher = watcher

	if err := watcher.Add(f.opts.FilePath); err != nil {
		return err
	}

	return nil
}

// watch monitors the file for changes and streams new lines.
func (f *Follower) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}

			if err := f.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (f *Follower) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		return f.readNewContent()

	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		// Log rotation
		return f.handleRotation(ctx)

	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		return nil
	}

	return nil
}

// readNewContent reads content past the last offset and hands each line to
// the handler.
func (f *Follower) readNewContent() error {
	if _, err := f.file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(f.file)
	const maxScanTokenSize = 1024 * 1024 // 1MB
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		if err := f.opts.Handler(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	var err error
	f.offset, err = f.file.Seek(0, io.SeekCurrent)
	return err
}

// handleRotation handles log file rotation.
func (f *Follower) handleRotation(ctx context.Context) error {
	if !f.opts.FollowRotate {
		fmt.Fprintf(os.Stderr, "\nFile rotated. Exiting. Use --follow-rotate to follow through rotations.\n")
		return fmt.Errorf("file rotated")
	}

	if f.file != nil {
		f.file.Close()
		f.file = nil
	}

	// Wait for new file to appear (with timeout)
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			file, err := os.Open(f.opts.FilePath)
			if err == nil {
				f.file = file
				f.offset = 0

				if err := f.watcher.Add(f.opts.FilePath); err != nil {
					return fmt.Errorf("failed to watch rotated file: %w", err)
				}

				fmt.Fprintf(os.Stderr, "\n==> File rotated, following new file <==\n")
				return nil
			}
		}
	}
}

// close closes all resources.
func (f *Follower) close() {
	if f.file != nil {
		f.file.Close()
	}
	if f.watcher != nil {
		f.watcher.Close()
	}
}
