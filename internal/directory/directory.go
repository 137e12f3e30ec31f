// Package directory provides the read-only technician directory: display
// names, per-service skill preference levels, and base coordinates used by
// the suggestion engine's travel estimates.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Preference is a technician's stored preference level for a service type.
type Preference string

const (
	PreferencePreferred Preference = "preferred"
	PreferenceNeutral   Preference = "neutral"
	PreferenceAvoid     Preference = "avoid"
	PreferenceNever     Preference = "never"
)

// Technician is one directory entry.
type Technician struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Lat    float64               `json:"lat"`
	Lng    float64               `json:"lng"`
	Skills map[string]Preference `json:"skills,omitempty"` // keyed by service type, case-insensitive
}

// SkillFor returns the technician's stored preference for a service type.
// Missing entries are neutral.
func (t Technician) SkillFor(serviceType string) Preference {
	for name, level := range t.Skills {
		if strings.EqualFold(name, serviceType) {
			return level
		}
	}
	return PreferenceNeutral
}

// Directory resolves technicians by id.
type Directory struct {
	byID  map[string]Technician
	order []Technician
}

// Load reads the directory from a JSON file shaped {"technicians": [...]}.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read technician directory: %w", err)
	}

	var document struct {
		Technicians []Technician `json:"technicians"`
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse technician directory: %w", err)
	}

	return New(document.Technicians), nil
}

// New builds a directory from entries.
func New(technicians []Technician) *Directory {
	byID := make(map[string]Technician, len(technicians))
	for _, technician := range technicians {
		byID[technician.ID] = technician
	}
	return &Directory{byID: byID, order: technicians}
}

// Lookup finds a technician by id.
func (d *Directory) Lookup(id string) (Technician, bool) {
	technician, ok := d.byID[id]
	return technician, ok
}

// Name resolves a technician's display name. Returns "" when unknown.
func (d *Directory) Name(id string) string {
	if technician, ok := d.byID[id]; ok {
		return technician.Name
	}
	return ""
}

// All returns every technician in directory order.
func (d *Directory) All() []Technician {
	return d.order
}
