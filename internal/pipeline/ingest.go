package pipeline

import (
	"bufio"
	"fmt"
	"os"
)

// maxLineSize bounds a single log line; JSON-heavy logs can get long.
const maxLineSize = 1024 * 1024 // 1MB

// ReadLines reads every line of the file at path, in order.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}
	return lines, nil
}
