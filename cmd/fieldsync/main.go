package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opsboard/fieldsync/internal/catalog"
	"github.com/opsboard/fieldsync/internal/config"
	"github.com/opsboard/fieldsync/internal/directory"
	"github.com/opsboard/fieldsync/internal/gateway"
	"github.com/opsboard/fieldsync/internal/httpapi"
	"github.com/opsboard/fieldsync/internal/logger"
	"github.com/opsboard/fieldsync/internal/mirror"
	"github.com/opsboard/fieldsync/internal/orchestrator"
	"github.com/opsboard/fieldsync/internal/suggest"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	credentials, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credentials: %v\n", err)
		os.Exit(1)
	}

	serviceCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load service catalog: %v\n", err)
		os.Exit(1)
	}

	technicians, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load technician directory: %v\n", err)
		os.Exit(1)
	}

	store, err := mirror.Open(cfg.MirrorDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open mirror database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	probeCompatibility(credentials, timeout)

	pacer := orchestrator.NewPacer(time.Duration(cfg.PaceMillis) * time.Millisecond)
	tenants := httpapi.NewTenants(credentials, store, serviceCatalog, technicians, timeout, pacer)
	bridge := suggest.NewBridge(tenants, tenants)
	engine := suggest.NewEngine()

	server := httpapi.New(cfg, tenants, bridge, engine, technicians, store)
	logger.Infof("main", "main", "fieldsync starting on port %d (%d technicians, %d tenants)",
		cfg.Port, len(technicians.All()), len(credentials.Organizations()))
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}

// probeCompatibility checks each tenant's remote API version at startup.
// Failures are logged, not fatal: a tenant may be temporarily unreachable.
func probeCompatibility(credentials *config.Credentials, timeout time.Duration) {
	for _, org := range credentials.Organizations() {
		credential, err := credentials.Lookup(org)
		if err != nil {
			continue
		}
		client := gateway.NewClient(credential.BaseURL, credential.APIKey, timeout)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := client.CheckCompatibility(ctx); err != nil {
			logger.Warnf("main", "probeCompatibility", "tenant %s: %v", org, err)
		} else {
			logger.Infof("main", "probeCompatibility", "tenant %s remote API is compatible", org)
		}
		cancel()
	}
}
