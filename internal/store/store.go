package store

import (
	"fmt"
	"path/filepath"
)

// Store manages one template library per source id, all rooted in a single
// state directory. Libraries are loaded lazily and cached.
type Store struct {
	root      string
	libraries map[string]*Library
}

// New creates a store rooted at dir. Library files live at
// <dir>/<sourceID>.json.
func New(dir string) *Store {
	return &Store{
		root:      dir,
		libraries: make(map[string]*Library),
	}
}

// Library returns the library for sourceID, loading it from disk on first
// access. An unreadable or corrupt library file is returned as an error
// rather than silently replaced with an empty library.
func (s *Store) Library(sourceID string) (*Library, error) {
	if lib, ok := s.libraries[sourceID]; ok {
		return lib, nil
	}
	path := filepath.Join(s.root, sourceID+".json")
	lib, err := NewLibrary(sourceID, path)
	if err != nil {
		return nil, err
	}
	s.libraries[sourceID] = lib
	return lib, nil
}

// SaveAll persists every loaded library.
func (s *Store) SaveAll() error {
	for sourceID, lib := range s.libraries {
		if err := lib.Save(); err != nil {
			return fmt.Errorf("failed to save library %s: %w", sourceID, err)
		}
	}
	return nil
}
