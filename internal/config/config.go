package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the fieldsync service.
// The service itself is stateless apart from the mirror database: job state
// lives in the external field-service system, which is always authoritative.
type Config struct {
	Port                int
	MirrorDBPath        string
	CatalogPath         string
	DirectoryPath       string
	CredentialsFile     string
	FetchTimeoutSeconds int
	PaceMillis          int // spacing between line-item calls against the remote API
}

// Load reads configuration with the following precedence order:
//  1. OS environment variables (highest priority)
//  2. .env file in current working directory (if present)
//  3. /etc/fieldsync/fieldsync.env (if present)
//  4. Default values (lowest priority)
//
// Required fields are validated.
func Load() (*Config, error) {
	// Load config files in reverse precedence order (lowest to highest
	// priority). godotenv never overrides variables already set, so OS env
	// vars and earlier files win.
	cwdEnvFilePath := ".env"
	if _, err := os.Stat(cwdEnvFilePath); err == nil {
		if err := godotenv.Load(cwdEnvFilePath); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	etcEnvFilePath := "/etc/fieldsync/fieldsync.env"
	if _, err := os.Stat(etcEnvFilePath); err == nil {
		if err := godotenv.Load(etcEnvFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{
		Port:                getEnvInt("FIELDSYNC_PORT", 2568),
		MirrorDBPath:        getEnvString("MIRROR_DB_PATH", "/var/lib/fieldsync/mirror.db"),
		CatalogPath:         os.Getenv("SERVICE_CATALOG_PATH"),
		DirectoryPath:       os.Getenv("TECHNICIAN_DIRECTORY_PATH"),
		CredentialsFile:     os.Getenv("FIELDSYNC_CREDENTIALS_FILE"),
		FetchTimeoutSeconds: getEnvInt("FETCH_TIMEOUT_SECONDS", 10),
		PaceMillis:          getEnvInt("LINE_ITEM_PACE_MS", 250),
	}

	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("FIELDSYNC_CREDENTIALS_FILE is required")
	}
	if cfg.CatalogPath == "" {
		return nil, fmt.Errorf("SERVICE_CATALOG_PATH is required")
	}
	if cfg.DirectoryPath == "" {
		return nil, fmt.Errorf("TECHNICIAN_DIRECTORY_PATH is required")
	}
	if cfg.FetchTimeoutSeconds < 1 {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be at least 1, got %d", cfg.FetchTimeoutSeconds)
	}
	if cfg.PaceMillis < 0 {
		return nil, fmt.Errorf("LINE_ITEM_PACE_MS must not be negative, got %d", cfg.PaceMillis)
	}

	return cfg, nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
