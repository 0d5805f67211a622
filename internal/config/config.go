// Package config defines the top-level configuration for the resolution
// driver and provides validation helpers, mirroring the teacher's
// two-phase TOML-plus-env-override loader.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SETTLE_* environment
// variables.
type Config struct {
	Driver   DriverConfig   `toml:"driver"`
	Feed     FeedConfig     `toml:"feed"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DriverConfig holds the Resolution Driver's tunables (SPEC_FULL.md §6).
type DriverConfig struct {
	RPCUrl            string   `toml:"rpc_url"`
	ProgramID         string   `toml:"program_id"`
	OracleKeypairPath string   `toml:"oracle_keypair_path"`
	OracleRawKey      string   `toml:"oracle_raw_key"`
	OracleKeyPassword string   `toml:"oracle_key_password"`
	CheckIntervalMs   int64    `toml:"check_interval_ms"`
	MaxRetries        int      `toml:"max_retries"`
	RetryDelayMs      int64    `toml:"retry_delay_ms"`
	StalenessLimitS   int64    `toml:"staleness_limit_s"`
	RequestTimeoutS   int64    `toml:"request_timeout_s"`
}

// CheckInterval returns the configured cycle length as a time.Duration.
func (d DriverConfig) CheckInterval() time.Duration {
	return time.Duration(d.CheckIntervalMs) * time.Millisecond
}

// RetryDelay returns the configured inter-retry sleep as a time.Duration.
func (d DriverConfig) RetryDelay() time.Duration {
	return time.Duration(d.RetryDelayMs) * time.Millisecond
}

// StalenessLimit returns the configured max observation age as a
// time.Duration.
func (d DriverConfig) StalenessLimit() time.Duration {
	return time.Duration(d.StalenessLimitS) * time.Second
}

// RequestTimeout returns the per-request feed deadline as a time.Duration.
func (d DriverConfig) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutS) * time.Second
}

// FeedConfig holds the External Feed Adapter's provider endpoints and
// credentials.
type FeedConfig struct {
	DexScreenerBaseURL string `toml:"dexscreener_base_url"`
	BirdeyeBaseURL     string `toml:"birdeye_base_url"`
	BirdeyeAPIKey      string `toml:"birdeye_api_key"`
}

// PostgresConfig holds ledger-persistence and audit-log connection
// parameters, mirroring the teacher's SupabaseConfig shape.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional observation cache and distributed
// market-lock connection parameters. Addr == "" disables Redis entirely.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds the optional compliance-archival object storage
// parameters. Bucket == "" disables archival entirely.
type S3Config struct {
	Endpoint         string `toml:"endpoint"`
	Region           string `toml:"region"`
	Bucket           string `toml:"bucket"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	UseSSL           bool   `toml:"use_ssl"`
	ForcePathStyle   bool   `toml:"force_path_style"`
	ArchiveIntervalS int64  `toml:"archive_interval_s"`
	RetentionDays    int    `toml:"retention_days"`
}

// ArchiveInterval returns how often the archiver sweeps for resolved
// markets and claimed wagers to export.
func (s S3Config) ArchiveInterval() time.Duration {
	return time.Duration(s.ArchiveIntervalS) * time.Second
}

// RetentionPeriod returns how long a resolved market is kept in the
// durable mirror before it becomes eligible for archival.
func (s S3Config) RetentionPeriod() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// ServerConfig holds the health/readiness HTTP listener's parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds operational-alert channel credentials.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with SPEC_FULL.md §6's stated
// defaults.
func Defaults() Config {
	return Config{
		Driver: DriverConfig{
			CheckIntervalMs: 60_000,
			MaxRetries:      3,
			RetryDelayMs:    5_000,
			StalenessLimitS: 300,
			RequestTimeoutS: 10,
		},
		Feed: FeedConfig{
			DexScreenerBaseURL: "https://api.dexscreener.com/latest",
			BirdeyeBaseURL:     "https://public-api.birdeye.so",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:           "us-east-1",
			ForcePathStyle:   true,
			ArchiveIntervalS: 3600,
			RetentionDays:    30,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"market_resolved", "resolve_failed", "driver_error"},
		},
		Mode:     "driver",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"driver": true,
	"server": true,
	"full":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: driver, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	needsOracle := c.Mode == "driver" || c.Mode == "full"
	if needsOracle {
		if c.Driver.OracleRawKey == "" && c.Driver.OracleKeypairPath == "" {
			errs = append(errs, "driver: either oracle_raw_key or oracle_keypair_path must be set for mode "+c.Mode)
		}
		if c.Driver.OracleKeypairPath != "" && c.Driver.OracleKeyPassword == "" {
			errs = append(errs, "driver: oracle_key_password is required when oracle_keypair_path is set")
		}
		if c.Driver.CheckIntervalMs <= 0 {
			errs = append(errs, "driver: check_interval_ms must be > 0")
		}
		if c.Driver.MaxRetries < 1 {
			errs = append(errs, "driver: max_retries must be >= 1")
		}
		if c.Driver.StalenessLimitS <= 0 {
			errs = append(errs, "driver: staleness_limit_s must be > 0")
		}
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
