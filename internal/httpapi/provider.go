package httpapi

import (
	"time"

	"github.com/opsboard/fieldsync/internal/catalog"
	"github.com/opsboard/fieldsync/internal/config"
	"github.com/opsboard/fieldsync/internal/directory"
	"github.com/opsboard/fieldsync/internal/gateway"
	"github.com/opsboard/fieldsync/internal/mirror"
	"github.com/opsboard/fieldsync/internal/orchestrator"
	"github.com/opsboard/fieldsync/internal/suggest"
)

// Tenants resolves per-organization orchestrators and deep links from the
// credential table. It implements suggest.RunnerProvider and
// suggest.LinkResolver.
type Tenants struct {
	credentials *config.Credentials
	store       *mirror.Store
	catalog     *catalog.Catalog
	directory   *directory.Directory
	timeout     time.Duration
	pacer       orchestrator.Pacer
}

// NewTenants creates the tenant resolver shared by the bridge and the direct
// job-update endpoint.
func NewTenants(credentials *config.Credentials, store *mirror.Store, cat *catalog.Catalog, dir *directory.Directory, timeout time.Duration, pacer orchestrator.Pacer) *Tenants {
	return &Tenants{
		credentials: credentials,
		store:       store,
		catalog:     cat,
		directory:   dir,
		timeout:     timeout,
		pacer:       pacer,
	}
}

// RunnerFor builds the orchestrator for one organization. A missing
// credential is a configuration error surfaced before any remote call.
func (t *Tenants) RunnerFor(organizationID string) (suggest.Runner, error) {
	credential, err := t.credentials.Lookup(organizationID)
	if err != nil {
		return nil, err
	}
	client := gateway.NewClient(credential.BaseURL, credential.APIKey, t.timeout)
	return orchestrator.New(client, t.store, t.catalog, t.directory, t.pacer), nil
}

// DeepLink builds the external-system URL for a remote job. Unknown
// organizations yield an empty link; the created state still renders.
func (t *Tenants) DeepLink(organizationID, remoteJobID string) string {
	credential, err := t.credentials.Lookup(organizationID)
	if err != nil {
		return ""
	}
	return credential.DeepLink(remoteJobID)
}
