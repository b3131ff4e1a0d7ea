package output

import (
	"fmt"
	"os"

	"github.com/bimmerbailey/templar/internal/pipeline"
	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// colorizeStatus picks a color for a line's pipeline status.
func colorizeStatus(status, text string) string {
	switch status {
	case pipeline.OutcomeStored, pipeline.OutcomeReplaced, pipeline.OutcomeRefined:
		return colorGreen + text + colorReset
	case pipeline.OutcomeRejected, pipeline.OutcomeRepairFailed:
		return colorYellow + text + colorReset
	case pipeline.OutcomeEscalated:
		return colorRed + text + colorReset
	default:
		return colorGray + text + colorReset
	}
}

// WriteEvent writes one watch-mode line labeled with its status and, when
// present, the template that explains it.
func (wr *Writer) WriteEvent(status, templateID, raw string, mode ColorMode) error {
	label := status
	if templateID != "" {
		label = fmt.Sprintf("%s %s", status, templateID)
	}
	if shouldColorize(mode, wr.w) {
		label = colorizeStatus(status, label)
	}
	_, err := fmt.Fprintf(wr.w, "[%s] %s\n", label, raw)
	return err
}
