package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source_catalog.json")

	catalog, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	catalog.Register(SourceDescriptor{
		SourceID:   "firewall_acme",
		DeviceType: "firewall",
		Vendor:     "acme",
		Metadata:   map[string]string{"reasoning": "syslog prefix matches acme firmware"},
	})
	if err := catalog.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	desc, ok := reloaded.Get("firewall_acme")
	if !ok {
		t.Fatal("descriptor missing after reload")
	}
	if desc.SourceID != "firewall_acme" {
		t.Errorf("source id = %q, want firewall_acme", desc.SourceID)
	}
	if desc.DeviceType != "firewall" || desc.Vendor != "acme" {
		t.Errorf("got %s/%s, want firewall/acme", desc.DeviceType, desc.Vendor)
	}
}

func TestCatalogDefaultsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source_catalog.json")
	doc := `{"mystery": {"device_type": "", "vendor": ""}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := NewCatalog(path)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	desc, ok := catalog.Get("mystery")
	if !ok {
		t.Fatal("descriptor missing")
	}
	if desc.DeviceType != "unknown" || desc.Vendor != "unknown" {
		t.Errorf("got %s/%s, want unknown/unknown", desc.DeviceType, desc.Vendor)
	}
}

func TestCatalogCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source_catalog.json")
	if err := os.WriteFile(path, []byte("]["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCatalog(path); err == nil {
		t.Fatal("expected error for corrupt catalog")
	}
}

func TestStoreLoadsLibrariesLazily(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	lib, err := s.Library("router_acme")
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if _, err := lib.Add(TemplateRecord{Pattern: `boot`}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	again, err := s.Library("router_acme")
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if again != lib {
		t.Error("expected the cached library instance")
	}

	if err := s.SaveAll(); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "router_acme.json")); err != nil {
		t.Errorf("library file not written: %v", err)
	}
}
