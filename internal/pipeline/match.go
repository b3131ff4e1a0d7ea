package pipeline

import (
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/store"
)

// MatchResult is the final labeling of one input line. TemplateID is empty
// when no active template matches.
type MatchResult struct {
	LineNumber int
	TemplateID string
	Variables  map[string]string
	Raw        string
}

// MatchAll re-matches every line against the library in pure form: no
// learning, no collaborator calls. Run after the streaming pass, it
// produces the authoritative labeling, so every line's assignment reflects
// the complete template set rather than a partial snapshot.
func MatchAll(lib *store.Library, lines []normalize.Line) []MatchResult {
	results := make([]MatchResult, 0, len(lines))
	for i, line := range lines {
		result := MatchResult{LineNumber: i + 1, Raw: line.Raw}
		if rec, vars, ok := lib.Match(line); ok {
			result.TemplateID = rec.ID
			result.Variables = vars
		}
		results = append(results, result)
	}
	return results
}
