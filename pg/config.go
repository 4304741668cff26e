package pg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AuthType selects how the server authenticates against PostgreSQL.
type AuthType string

const (
	// AuthPostgres is traditional username/password authentication via
	// DATABASE_URL.
	AuthPostgres AuthType = "postgresql"

	// AuthEntraID is token-based authentication against Azure Database for
	// PostgreSQL using Microsoft Entra ID.
	AuthEntraID AuthType = "entraid"
)

// Config holds server settings, read once from the environment at startup.
type Config struct {
	// AuthType selects plain-credential vs. token-based authentication.
	AuthType AuthType

	// DatabaseURL is the default connection descriptor (plain auth).
	DatabaseURL string

	// Discrete connection fields, used with token-based auth.
	PGHost     string
	PGPort     int
	PGDatabase string
	PGUser     string
	PGSSLMode  string

	// Entra ID credentials. When ClientID and ClientSecret are both set a
	// service principal is used, otherwise the default credential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// BackupDir is where auto-named backups land when no destination is given.
	BackupDir string

	// Pool sizing and acquire timeout.
	PoolMinConns   int
	PoolMaxConns   int
	AcquireTimeout time.Duration

	// MetricsAddr, when set, exposes Prometheus metrics over HTTP.
	MetricsAddr string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AuthType:          AuthPostgres,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		PGHost:            os.Getenv("PG_HOST"),
		PGPort:            defaultPort,
		PGDatabase:        os.Getenv("PG_DATABASE"),
		PGUser:            os.Getenv("PG_USER"),
		PGSSLMode:         envOrDefault("PG_SSLMODE", "require"),
		AzureTenantID:     os.Getenv("AZURE_TENANT_ID"),
		AzureClientID:     os.Getenv("AZURE_CLIENT_ID"),
		AzureClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		BackupDir:         os.Getenv("DEFAULT_BACKUP_DIR"),
		PoolMinConns:      2,
		PoolMaxConns:      10,
		AcquireTimeout:    60 * time.Second,
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
	}

	if os.Getenv("AUTH_TYPE") == string(AuthEntraID) {
		cfg.AuthType = AuthEntraID
	}

	if p := os.Getenv("PG_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid PG_PORT %q", p)
		}
		cfg.PGPort = port
	}

	if cfg.BackupDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving default backup directory: %w", err)
		}
		cfg.BackupDir = filepath.Join(cwd, "backups")
	}

	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolMinConns = n
		}
	}
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolMaxConns = n
		}
	}
	if v := os.Getenv("POOL_ACQUIRE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AcquireTimeout = d
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PoolMinConns > c.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) exceeds POOL_MAX_CONNS (%d)", c.PoolMinConns, c.PoolMaxConns)
	}

	switch c.AuthType {
	case AuthPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}
	case AuthEntraID:
		var missing []string
		if c.PGHost == "" {
			missing = append(missing, "PG_HOST")
		}
		if c.PGDatabase == "" {
			missing = append(missing, "PG_DATABASE")
		}
		if c.PGUser == "" {
			missing = append(missing, "PG_USER")
		}
		if c.AzureClientID != "" && c.AzureClientSecret == "" {
			missing = append(missing, "AZURE_CLIENT_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing environment variables for Entra ID authentication: %v", missing)
		}
	}
	return nil
}

// Descriptor resolves the default connection descriptor from the config.
// For token-based auth the discrete PG_* fields are used and the password
// is left empty; the pool injects a fresh token before each connect.
func (c *Config) Descriptor() (*ConnectionDescriptor, error) {
	if c.AuthType == AuthEntraID {
		return &ConnectionDescriptor{
			Scheme:   "postgresql",
			Host:     c.PGHost,
			Port:     c.PGPort,
			Username: c.PGUser,
			Database: c.PGDatabase,
			SSLMode:  c.PGSSLMode,
		}, nil
	}
	return ParseDescriptor(c.DatabaseURL)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
