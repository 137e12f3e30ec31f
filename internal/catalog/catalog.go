// Package catalog provides the read-only service catalog: a lookup from a
// service name to its canonical remote identifier and price, used when
// replacing line items on a remote job.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Service is one catalog entry.
type Service struct {
	RemoteID string   `json:"remote_id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
}

// Catalog resolves service names case-insensitively.
type Catalog struct {
	byName map[string]Service
}

// Load reads the catalog from a JSON file shaped {"services": [...]}.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service catalog: %w", err)
	}

	var document struct {
		Services []Service `json:"services"`
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse service catalog: %w", err)
	}

	return New(document.Services), nil
}

// New builds a catalog from entries. Later duplicates of a name win.
func New(services []Service) *Catalog {
	byName := make(map[string]Service, len(services))
	for _, service := range services {
		byName[strings.ToLower(strings.TrimSpace(service.Name))] = service
	}
	return &Catalog{byName: byName}
}

// Resolve finds a service by name, ignoring case and surrounding whitespace.
func (c *Catalog) Resolve(name string) (Service, bool) {
	service, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return service, ok
}
