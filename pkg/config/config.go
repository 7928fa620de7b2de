package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for actoengine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"development"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Metadata store configuration (SQL Server)
	Database DatabaseConfig `yaml:"database"`

	// Sync behavior configuration
	Sync SyncConfig `yaml:"sync"`
}

// DatabaseConfig holds the metadata store connection configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"ACTO_DB_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"ACTO_DB_PORT" env-default:"1433"`
	User           string `yaml:"user" env:"ACTO_DB_USER" env-default:"actoengine"`
	Password       string `yaml:"-" env:"ACTO_DB_PASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"ACTO_DB_NAME" env-default:"ActoEngine"`
	MaxConnections int    `yaml:"max_connections" env:"ACTO_DB_MAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"ACTO_DB_MIGRATIONS_PATH" env-default:"migrations"`
}

// SyncConfig holds schema synchronization settings.
type SyncConfig struct {
	// ConnectionTimeoutSeconds applies to target database connections opened
	// during verification and sync. The driver's own command timeouts apply
	// beyond this; the sync itself carries no extra watchdog.
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds" env:"SYNC_CONNECTION_TIMEOUT_SECONDS" env-default:"30"`
	// LockTTLMinutes is how long a per-project sync lock entry is retained
	// after release before the registry expires it.
	LockTTLMinutes int `yaml:"lock_ttl_minutes" env:"SYNC_LOCK_TTL_MINUTES" env-default:"30"`
	// TimeoutMinutes bounds one whole background sync run.
	TimeoutMinutes int `yaml:"timeout_minutes" env:"SYNC_TIMEOUT_MINUTES" env-default:"20"`
	// AppName is the application name tag sent on target connections.
	AppName string `yaml:"app_name" env:"SYNC_APP_NAME" env-default:"ActoEngine"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Sync.ConnectionTimeoutSeconds <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in a production-like
// environment. Target connection descriptors use stricter encryption
// defaults when this is true.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "staging"
}
