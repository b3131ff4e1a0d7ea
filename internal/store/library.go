// Package store persists and matches log templates, grouped per source.
//
// Each classified log source owns an independent template library. A library
// keeps its records in insertion order, which doubles as match priority:
// earlier-learned templates win ties. That ordering is a correctness
// invariant, not an accident of the backing container.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bimmerbailey/templar/internal/normalize"
)

// TemplateRecord describes one learned template.
type TemplateRecord struct {
	// ID is unique within a source, assigned by the library on first Add.
	ID string `json:"template_id"`

	// SourceID names the source library that owns this record.
	SourceID string `json:"source_id"`

	// Pattern is the template text: a regular expression with named capture
	// groups for variable fields, matched against the full canonical line.
	Pattern string `json:"pattern"`

	// Notes carries the collaborator's reasoning for audit purposes.
	Notes string `json:"notes"`

	// Active is false for records superseded by a replacement. Inactive
	// records are kept on disk so the library history stays auditable.
	Active bool `json:"active"`
}

// PatternError reports template text that cannot be compiled into a matcher.
// It is never fatal: callers treat the offending candidate as rejected.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid template pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// libraryDocument is the on-disk shape of one template library.
type libraryDocument struct {
	SourceID  string           `json:"source_id"`
	Templates []TemplateRecord `json:"templates"`
}

// Library holds the templates of a single source.
// It is not safe for concurrent use; the pipeline is strictly sequential.
type Library struct {
	sourceID string
	path     string

	order    []string
	records  map[string]*TemplateRecord
	compiled map[string]*regexp.Regexp
	sequence int
}

// NewLibrary creates a library for sourceID backed by path. If the file
// exists its records are loaded and the id sequence is recomputed; a file
// that cannot be read or parsed is a fatal condition for the caller, since
// silently starting empty would lose learned history.
func NewLibrary(sourceID, path string) (*Library, error) {
	lib := &Library{
		sourceID: sourceID,
		path:     path,
		records:  make(map[string]*TemplateRecord),
		compiled: make(map[string]*regexp.Regexp),
		sequence: 1,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template library %s: %w", path, err)
	}

	var doc libraryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt template library %s: %w", path, err)
	}

	for i := range doc.Templates {
		rec := doc.Templates[i]
		matcher, err := compile(rec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("template library %s: %w", path, err)
		}
		lib.order = append(lib.order, rec.ID)
		lib.records[rec.ID] = &rec
		lib.compiled[rec.ID] = matcher

		// Sequence must stay above every known numeric suffix so reloaded
		// libraries never reuse an id. Non-numeric suffixes are tolerated.
		suffix := rec.ID[strings.LastIndex(rec.ID, "-")+1:]
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n+1 > lib.sequence {
			lib.sequence = n + 1
		}
	}

	return lib, nil
}

// compile wraps the pattern so a match must cover the entire canonical line.
func compile(pattern string) (*regexp.Regexp, error) {
	matcher, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return matcher, nil
}

// SourceID returns the source this library belongs to.
func (l *Library) SourceID() string { return l.sourceID }

// AllocateID returns the next template id for this source and advances the
// sequence. Ids are zero-padded to four digits; once the sequence outgrows
// the padding the number is emitted unpadded rather than wrapping.
func (l *Library) AllocateID() string {
	id := fmt.Sprintf("%s-%04d", l.sourceID, l.sequence)
	l.sequence++
	return id
}

// Add compiles, stores, and activates a template record. A record without an
// id is assigned one. Returns a PatternError and stores nothing if the
// pattern text does not compile.
func (l *Library) Add(rec TemplateRecord) (*TemplateRecord, error) {
	matcher, err := compile(rec.Pattern)
	if err != nil {
		return nil, err
	}

	if rec.ID == "" {
		rec.ID = l.AllocateID()
	}
	rec.SourceID = l.sourceID
	rec.Active = true

	if _, exists := l.records[rec.ID]; !exists {
		l.order = append(l.order, rec.ID)
	}
	stored := rec
	l.records[rec.ID] = &stored
	l.compiled[rec.ID] = matcher
	return &stored, nil
}

// Deactivate marks a record inactive. Unknown ids are a no-op, not an error,
// so conflict resolutions may safely list ids that no longer exist.
func (l *Library) Deactivate(id string) {
	if rec, ok := l.records[id]; ok {
		rec.Active = false
	}
}

// Get returns the record for id, if present.
func (l *Library) Get(id string) (*TemplateRecord, bool) {
	rec, ok := l.records[id]
	return rec, ok
}

// Records returns all records, active and inactive, in insertion order.
func (l *Library) Records() []TemplateRecord {
	out := make([]TemplateRecord, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.records[id])
	}
	return out
}

// ActiveRecords returns active records in insertion order.
func (l *Library) ActiveRecords() []TemplateRecord {
	var out []TemplateRecord
	for _, id := range l.order {
		if rec := l.records[id]; rec.Active {
			out = append(out, *rec)
		}
	}
	return out
}

// Len returns the total number of records, including inactive ones.
func (l *Library) Len() int { return len(l.order) }

// Match tests the canonical line against every active template in insertion
// order and returns the first full match along with its captured variables.
// The second return is false when no active template matches.
func (l *Library) Match(line normalize.Line) (*TemplateRecord, map[string]string, bool) {
	for _, id := range l.order {
		rec := l.records[id]
		if !rec.Active {
			continue
		}
		matcher := l.compiled[id]
		if matcher == nil {
			// Compiled cache is derivable from the pattern text.
			m, err := compile(rec.Pattern)
			if err != nil {
				continue
			}
			l.compiled[id] = m
			matcher = m
		}
		groups := matcher.FindStringSubmatch(line.Canonical)
		if groups == nil {
			continue
		}
		return rec, captures(matcher, groups), true
	}
	return nil, nil, false
}

// captures maps named subexpressions to their matched text.
func captures(matcher *regexp.Regexp, groups []string) map[string]string {
	vars := make(map[string]string)
	for i, name := range matcher.SubexpNames() {
		if name == "" || i >= len(groups) {
			continue
		}
		vars[name] = groups[i]
	}
	return vars
}

// Save writes every record, active and inactive, to the library path.
func (l *Library) Save() error {
	doc := libraryDocument{
		SourceID:  l.sourceID,
		Templates: l.Records(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template library: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}
	if err := os.WriteFile(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write template library %s: %w", l.path, err)
	}
	return nil
}
