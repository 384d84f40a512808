// Package config provides centralized configuration loading and startup
// validation for the entitlement backend. Everything comes from environment
// variables; a misconfigured deployment fails at startup, not on the first
// admin login.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Registry and audit storage backends.
const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Config holds all service configuration.
type Config struct {
	// Core
	Port        string
	GatewayPort string

	// Ledger
	SuiRPCURL     string
	PackageID     string
	SignerKeyPath string

	// Admin auth
	AdminUser     string
	AdminPassHash string
	JWTSecret     string

	// Registry storage
	RegistryBackend string
	RegistryPath    string
	PostgresURL     string

	// Audit storage
	AuditBackend string
	AuditPath    string

	// Redis (login rate limiting; optional)
	RedisURL string

	// Collaborators (optional)
	CatalogBaseURL string
	CatalogAPIKey  string

	// Retry policy for outbound reads
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// Telemetry
	SentryDSN string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables and validates the
// mandatory fields.
func Load() (*Config, error) {
	c := &Config{
		Port:        getenv("PORT", "8080"),
		GatewayPort: getenv("GATEWAY_PORT", "8081"),

		SuiRPCURL:     getenv("SUI_RPC_URL", "https://fullnode.testnet.sui.io:443"),
		PackageID:     os.Getenv("SUISTREAM_PACKAGE_ID"),
		SignerKeyPath: getenv("SIGNER_KEY_PATH", "admin.key.json"),

		AdminUser:     getenv("ADMIN_USER", "admin"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),
		JWTSecret:     os.Getenv("ADMIN_JWT_SECRET"),

		RegistryBackend: getenv("REGISTRY_BACKEND", BackendFile),
		RegistryPath:    getenv("REGISTRY_PATH", "object_registry.json"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),

		AuditBackend: getenv("AUDIT_BACKEND", BackendFile),
		AuditPath:    getenv("AUDIT_PATH", "audit.log"),

		RedisURL: os.Getenv("REDIS_URL"),

		CatalogBaseURL: os.Getenv("CATALOG_BASE_URL"),
		CatalogAPIKey:  os.Getenv("CATALOG_API_KEY"),

		RetryMaxAttempts: getenvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   time.Duration(getenvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,

		SentryDSN: os.Getenv("SENTRY_DSN"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}

	// Validation for mandatory fields.
	if c.PackageID == "" {
		return nil, fmt.Errorf("SUISTREAM_PACKAGE_ID is required")
	}
	if c.AdminPassHash == "" {
		return nil, fmt.Errorf("ADMIN_PASS_HASH is required (bcrypt hash of the admin password)")
	}
	if c.JWTSecret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET must be at least 32 characters")
	}

	switch c.RegistryBackend {
	case BackendPostgres:
		if c.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required when REGISTRY_BACKEND=postgres")
		}
	case BackendFile, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown REGISTRY_BACKEND %q", c.RegistryBackend)
	}

	switch c.AuditBackend {
	case BackendPostgres:
		if c.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required when AUDIT_BACKEND=postgres")
		}
	case BackendFile:
	default:
		return nil, fmt.Errorf("unknown AUDIT_BACKEND %q", c.AuditBackend)
	}

	if c.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	return c, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
