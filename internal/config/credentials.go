package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrMissingCredential is returned when no credential entry exists for an
// organization. Treated as a fatal configuration error before any remote call.
var ErrMissingCredential = errors.New("no field-service credential for organization")

// TenantCredential holds the per-organization access details for the external
// field-service system.
type TenantCredential struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	// DashboardURL is the organization's external-system web base, used to
	// build deep links for created suggestions. Falls back to BaseURL.
	DashboardURL string `json:"dashboard_url,omitempty"`
}

// Credentials maps organization id to its external-system credential.
type Credentials struct {
	tenants map[string]TenantCredential
}

// LoadCredentials reads the tenant credential table from a JSON file shaped
// {"org-id": {"api_key": "...", "base_url": "..."}}.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var tenants map[string]TenantCredential
	if err := json.Unmarshal(data, &tenants); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	for org, cred := range tenants {
		if strings.TrimSpace(cred.APIKey) == "" {
			return nil, fmt.Errorf("credential for organization %q has empty api_key", org)
		}
		if strings.TrimSpace(cred.BaseURL) == "" {
			return nil, fmt.Errorf("credential for organization %q has empty base_url", org)
		}
	}

	return &Credentials{tenants: tenants}, nil
}

// Organizations lists every organization with a credential entry.
func (c *Credentials) Organizations() []string {
	orgs := make([]string, 0, len(c.tenants))
	for org := range c.tenants {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs
}

// Lookup resolves the credential for an organization.
func (c *Credentials) Lookup(organizationID string) (TenantCredential, error) {
	cred, ok := c.tenants[organizationID]
	if !ok {
		return TenantCredential{}, fmt.Errorf("%w: %s", ErrMissingCredential, organizationID)
	}
	return cred, nil
}

// DeepLink builds the external-system URL for a remote job.
func (t TenantCredential) DeepLink(remoteJobID string) string {
	base := t.DashboardURL
	if base == "" {
		base = t.BaseURL
	}
	return strings.TrimSuffix(base, "/") + "/jobs/" + remoteJobID
}
