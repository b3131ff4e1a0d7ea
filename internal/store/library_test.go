package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bimmerbailey/templar/internal/normalize"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary("firewall_acme", filepath.Join(t.TempDir(), "firewall_acme.json"))
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	return lib
}

func TestLibraryAddAssignsSequentialIDs(t *testing.T) {
	lib := newTestLibrary(t)

	first, err := lib.Add(TemplateRecord{Pattern: `session (?P<id>\d+) opened`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := lib.Add(TemplateRecord{Pattern: `session (?P<id>\d+) closed`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if first.ID != "firewall_acme-0001" {
		t.Errorf("first id = %q, want firewall_acme-0001", first.ID)
	}
	if second.ID != "firewall_acme-0002" {
		t.Errorf("second id = %q, want firewall_acme-0002", second.ID)
	}
	if !first.Active || !second.Active {
		t.Error("added records must be active")
	}
	if first.SourceID != "firewall_acme" {
		t.Errorf("source id = %q, want firewall_acme", first.SourceID)
	}
}

func TestLibraryAddRejectsInvalidPattern(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Add(TemplateRecord{Pattern: `unclosed (?P<id>`})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("error type = %T, want *PatternError", err)
	}
	if lib.Len() != 0 {
		t.Errorf("library has %d records after failed add, want 0", lib.Len())
	}
}

func TestLibraryMatchRequiresFullLine(t *testing.T) {
	lib := newTestLibrary(t)
	if _, err := lib.Add(TemplateRecord{Pattern: `session (?P<id>\d+) opened`}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tests := []struct {
		name  string
		line  string
		match bool
	}{
		{"exact line matches", "session 42 opened", true},
		{"prefix does not match", "session 42 opened by admin", false},
		{"suffix does not match", "note: session 42 opened", false},
		{"different line does not match", "session closed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := lib.Match(normalize.Normalize(tt.line))
			if ok != tt.match {
				t.Errorf("Match(%q) = %v, want %v", tt.line, ok, tt.match)
			}
		})
	}
}

func TestLibraryMatchReturnsNamedCaptures(t *testing.T) {
	lib := newTestLibrary(t)
	if _, err := lib.Add(TemplateRecord{Pattern: `user (?P<user>\S+) logged in from (?P<ip>\S+)`}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, vars, ok := lib.Match(normalize.Normalize("user admin logged in from 10.0.0.5"))
	if !ok {
		t.Fatal("expected a match")
	}
	if vars["user"] != "admin" {
		t.Errorf("user = %q, want admin", vars["user"])
	}
	if vars["ip"] != "10.0.0.5" {
		t.Errorf("ip = %q, want 10.0.0.5", vars["ip"])
	}
}

func TestLibraryMatchPrefersInsertionOrder(t *testing.T) {
	lib := newTestLibrary(t)
	first, err := lib.Add(TemplateRecord{Pattern: `event (?P<n>\d+)`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := lib.Add(TemplateRecord{Pattern: `event .*`}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec, _, ok := lib.Match(normalize.Normalize("event 7"))
	if !ok {
		t.Fatal("expected a match")
	}
	if rec.ID != first.ID {
		t.Errorf("matched %s, want earlier template %s", rec.ID, first.ID)
	}
}

func TestLibraryDeactivate(t *testing.T) {
	lib := newTestLibrary(t)
	rec, err := lib.Add(TemplateRecord{Pattern: `ping`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	lib.Deactivate(rec.ID)
	if _, _, ok := lib.Match(normalize.Normalize("ping")); ok {
		t.Error("inactive template must not match")
	}
	if got := len(lib.ActiveRecords()); got != 0 {
		t.Errorf("active records = %d, want 0", got)
	}
	if lib.Len() != 1 {
		t.Errorf("total records = %d, want 1 (inactive kept)", lib.Len())
	}

	// Idempotent, and unknown ids are no-ops.
	lib.Deactivate(rec.ID)
	lib.Deactivate("firewall_acme-9999")
}

func TestLibrarySaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firewall_acme.json")
	lib, err := NewLibrary("firewall_acme", path)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	active, err := lib.Add(TemplateRecord{Pattern: `up`, Notes: "link up"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	retired, err := lib.Add(TemplateRecord{Pattern: `down`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	lib.Deactivate(retired.ID)
	if err := lib.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewLibrary("firewall_acme", path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded %d records, want 2", reloaded.Len())
	}
	got, ok := reloaded.Get(active.ID)
	if !ok {
		t.Fatalf("record %s missing after reload", active.ID)
	}
	if got.Notes != "link up" {
		t.Errorf("notes = %q, want %q", got.Notes, "link up")
	}
	if gotRetired, _ := reloaded.Get(retired.ID); gotRetired.Active {
		t.Error("deactivated record reloaded as active")
	}

	// The id sequence must continue past every persisted id.
	next, err := reloaded.Add(TemplateRecord{Pattern: `restart`})
	if err != nil {
		t.Fatalf("Add after reload: %v", err)
	}
	if next.ID != "firewall_acme-0003" {
		t.Errorf("next id = %q, want firewall_acme-0003", next.ID)
	}
}

func TestNewLibraryMissingFileStartsEmpty(t *testing.T) {
	lib, err := NewLibrary("x", filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if lib.Len() != 0 {
		t.Errorf("records = %d, want 0", lib.Len())
	}
}

func TestNewLibraryCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLibrary("x", path); err == nil {
		t.Fatal("expected error for corrupt library file")
	}
}

func TestAllocateIDPadding(t *testing.T) {
	lib := newTestLibrary(t)
	id := lib.AllocateID()
	if !strings.HasSuffix(id, "-0001") {
		t.Errorf("id = %q, want -0001 suffix", id)
	}

	lib.sequence = 12345
	if got := lib.AllocateID(); !strings.HasSuffix(got, "-12345") {
		t.Errorf("id = %q, want unpadded -12345 suffix", got)
	}
}

func TestSequenceSkipsNonNumericSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.json")
	doc := `{
  "source_id": "mixed",
  "templates": [
    {"template_id": "mixed-0007", "source_id": "mixed", "pattern": "a", "active": true},
    {"template_id": "mixed-legacy", "source_id": "mixed", "pattern": "b", "active": true}
  ]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := NewLibrary("mixed", path)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	rec, err := lib.Add(TemplateRecord{Pattern: `c`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID != "mixed-0008" {
		t.Errorf("next id = %q, want mixed-0008", rec.ID)
	}
}
