package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SourceDescriptor records the classification of one log source.
type SourceDescriptor struct {
	SourceID   string            `json:"-"`
	DeviceType string            `json:"device_type"`
	Vendor     string            `json:"vendor"`
	Metadata   map[string]string `json:"metadata"`
}

// Catalog persists the mapping from source id to its classification so later
// runs route the same device/vendor combination to the same library.
type Catalog struct {
	path    string
	entries map[string]SourceDescriptor
}

// NewCatalog loads the catalog at path, or starts empty when the file does
// not exist. A file that exists but cannot be parsed is a fatal condition.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{
		path:    path,
		entries: make(map[string]SourceDescriptor),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog %s: %w", path, err)
	}

	var raw map[string]SourceDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("corrupt source catalog %s: %w", path, err)
	}
	for sourceID, desc := range raw {
		desc.SourceID = sourceID
		if desc.DeviceType == "" {
			desc.DeviceType = "unknown"
		}
		if desc.Vendor == "" {
			desc.Vendor = "unknown"
		}
		if desc.Metadata == nil {
			desc.Metadata = make(map[string]string)
		}
		c.entries[sourceID] = desc
	}
	return c, nil
}

// Register adds or replaces a descriptor.
func (c *Catalog) Register(desc SourceDescriptor) {
	c.entries[desc.SourceID] = desc
}

// Get returns the descriptor for sourceID, if present.
func (c *Catalog) Get(sourceID string) (SourceDescriptor, bool) {
	desc, ok := c.entries[sourceID]
	return desc, ok
}

// Save writes the catalog back to its path.
func (c *Catalog) Save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode source catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write source catalog %s: %w", c.path, err)
	}
	return nil
}
