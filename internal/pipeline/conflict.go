package pipeline

import (
	"regexp"

	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/store"
)

// Conflict pairs an existing active template with the cached example line
// that the candidate pattern also matches.
type Conflict struct {
	Record  store.TemplateRecord
	Example normalize.Line
}

// DetectConflicts returns every active template whose cached example the
// candidate pattern would also fully match. Overlap means two active
// templates could non-deterministically explain the same future line, so a
// candidate is only safe to add when this set is empty.
//
// A candidate that fails to compile yields an empty set: malformed patterns
// are handled by review failure upstream, which keeps this check total and
// side-effect-free.
func DetectConflicts(pattern string, lib *store.Library, examples map[string]normalize.Line) []Conflict {
	matcher, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil
	}

	var conflicts []Conflict
	for _, rec := range lib.ActiveRecords() {
		example, ok := examples[rec.ID]
		if !ok {
			continue
		}
		if matcher.MatchString(example.Canonical) {
			conflicts = append(conflicts, Conflict{Record: rec, Example: example})
		}
	}
	return conflicts
}
