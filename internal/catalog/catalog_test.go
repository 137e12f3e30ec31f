package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_CaseInsensitive(t *testing.T) {
	price := 129.0
	c := New([]Service{
		{RemoteID: "svc-1", Name: "Carpet Cleaning", Price: &price},
		{RemoteID: "svc-2", Name: "Window Washing"},
	})

	for _, name := range []string{"Carpet Cleaning", "carpet cleaning", "CARPET CLEANING", "  Carpet Cleaning  "} {
		service, ok := c.Resolve(name)
		if !ok {
			t.Errorf("expected %q to resolve", name)
			continue
		}
		if service.RemoteID != "svc-1" {
			t.Errorf("expected svc-1 for %q, got %s", name, service.RemoteID)
		}
	}

	if _, ok := c.Resolve("Duct Cleaning"); ok {
		t.Error("expected unknown service to miss")
	}

	noPrice, _ := c.Resolve("Window Washing")
	if noPrice.Price != nil {
		t.Errorf("expected nil price, got %v", *noPrice.Price)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	document := `{"services": [{"remote_id": "svc-1", "name": "Carpet Cleaning", "price": 129}]}`
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	service, ok := c.Resolve("carpet cleaning")
	if !ok || service.RemoteID != "svc-1" || service.Price == nil || *service.Price != 129 {
		t.Errorf("unexpected service %+v (ok=%v)", service, ok)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("not json"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
