package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SETTLE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SETTLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Driver ──
	setStr(&cfg.Driver.RPCUrl, "SETTLE_DRIVER_RPC_URL")
	setStr(&cfg.Driver.ProgramID, "SETTLE_DRIVER_PROGRAM_ID")
	setStr(&cfg.Driver.OracleKeypairPath, "SETTLE_DRIVER_ORACLE_KEYPAIR_PATH")
	setStr(&cfg.Driver.OracleRawKey, "SETTLE_DRIVER_ORACLE_RAW_KEY")
	setStr(&cfg.Driver.OracleKeyPassword, "SETTLE_DRIVER_ORACLE_KEY_PASSWORD")
	setInt64(&cfg.Driver.CheckIntervalMs, "SETTLE_DRIVER_CHECK_INTERVAL_MS")
	setInt(&cfg.Driver.MaxRetries, "SETTLE_DRIVER_MAX_RETRIES")
	setInt64(&cfg.Driver.RetryDelayMs, "SETTLE_DRIVER_RETRY_DELAY_MS")
	setInt64(&cfg.Driver.StalenessLimitS, "SETTLE_DRIVER_STALENESS_LIMIT_S")
	setInt64(&cfg.Driver.RequestTimeoutS, "SETTLE_DRIVER_REQUEST_TIMEOUT_S")

	// ── Feed ──
	setStr(&cfg.Feed.DexScreenerBaseURL, "SETTLE_FEED_DEXSCREENER_BASE_URL")
	setStr(&cfg.Feed.BirdeyeBaseURL, "SETTLE_FEED_BIRDEYE_BASE_URL")
	setStr(&cfg.Feed.BirdeyeAPIKey, "SETTLE_FEED_BIRDEYE_API_KEY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SETTLE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SETTLE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SETTLE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SETTLE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SETTLE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SETTLE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SETTLE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SETTLE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SETTLE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SETTLE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SETTLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SETTLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SETTLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SETTLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SETTLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SETTLE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SETTLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SETTLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SETTLE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SETTLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SETTLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SETTLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SETTLE_S3_FORCE_PATH_STYLE")
	setInt64(&cfg.S3.ArchiveIntervalS, "SETTLE_S3_ARCHIVE_INTERVAL_S")
	setInt(&cfg.S3.RetentionDays, "SETTLE_S3_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SETTLE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SETTLE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SETTLE_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, "SETTLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SETTLE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SETTLE_MODE")
	setStr(&cfg.LogLevel, "SETTLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
