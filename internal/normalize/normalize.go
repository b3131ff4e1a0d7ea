// Package normalize prepares raw log lines for template matching.
//
// Matching operates on a canonical form of each line: line endings are
// stripped and internal whitespace runs are collapsed to single spaces.
// The raw text is preserved untouched for output and prompting.
package normalize

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Line pairs a raw log line with its canonical comparison form.
// Values are immutable once created.
type Line struct {
	// Raw is the original line with only the trailing line ending removed.
	Raw string

	// Canonical is the whitespace-collapsed form used for matching.
	Canonical string
}

// Normalize converts a single input line into its canonical form.
func Normalize(line string) Line {
	raw := strings.TrimRight(line, "\r\n")
	canonical := strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
	return Line{Raw: raw, Canonical: canonical}
}

// NormalizeAll converts a batch of input lines, preserving order.
func NormalizeAll(lines []string) []Line {
	out := make([]Line, len(lines))
	for i, line := range lines {
		out[i] = Normalize(line)
	}
	return out
}
