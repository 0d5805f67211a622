package config

import (
	"os"
	"testing"
)

func TestDefaultsPassValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Driver.OracleRawKey = "abc123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() with an oracle key set should validate, got: %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Driver.OracleRawKey = "abc123"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestValidateRequiresOracleKeyInDriverMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "driver"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when neither oracle_raw_key nor oracle_keypair_path is set")
	}
}

func TestValidateSkipsOracleKeyInServerMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("server mode should not require an oracle key, got: %v", err)
	}
}

func TestApplyEnvOverridesDriverSection(t *testing.T) {
	os.Setenv("SETTLE_DRIVER_RPC_URL", "https://example-rpc.test")
	os.Setenv("SETTLE_DRIVER_MAX_RETRIES", "9")
	defer os.Unsetenv("SETTLE_DRIVER_RPC_URL")
	defer os.Unsetenv("SETTLE_DRIVER_MAX_RETRIES")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Driver.RPCUrl != "https://example-rpc.test" {
		t.Fatalf("RPCUrl = %q, want override", cfg.Driver.RPCUrl)
	}
	if cfg.Driver.MaxRetries != 9 {
		t.Fatalf("MaxRetries = %d, want 9", cfg.Driver.MaxRetries)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Driver.OracleRawKey = "supersecretkey"
	cfg.Postgres.Password = "dbpass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/xyz"

	redacted := RedactedConfig(&cfg)

	if redacted.Driver.OracleRawKey == cfg.Driver.OracleRawKey {
		t.Fatal("oracle raw key was not redacted")
	}
	if redacted.Postgres.Password == cfg.Postgres.Password {
		t.Fatal("postgres password was not redacted")
	}
	if redacted.S3.SecretKey == cfg.S3.SecretKey {
		t.Fatal("s3 secret key was not redacted")
	}
	if redacted.Notify.DiscordWebhookURL == cfg.Notify.DiscordWebhookURL {
		t.Fatal("discord webhook url was not redacted")
	}
	// The original must be untouched.
	if cfg.Driver.OracleRawKey != "supersecretkey" {
		t.Fatal("RedactedConfig mutated the original Config")
	}
}
