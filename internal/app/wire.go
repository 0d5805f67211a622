package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	s3blob "github.com/oraclesettle/parimutuel/internal/blob/s3"
	"github.com/oraclesettle/parimutuel/internal/cache/redis"
	"github.com/oraclesettle/parimutuel/internal/config"
	"github.com/oraclesettle/parimutuel/internal/crypto"
	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/driver"
	"github.com/oraclesettle/parimutuel/internal/feed"
	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/notify"
	"github.com/oraclesettle/parimutuel/internal/server/handler"
	"github.com/oraclesettle/parimutuel/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application modes need
// to operate. Fields that back optional infrastructure (Postgres, Redis,
// S3) are nil when the corresponding config section is unconfigured; modes
// must check for nil before using them.
type Dependencies struct {
	Ledger *ledger.Ledger
	Driver *driver.Driver

	MarketStore  domain.MarketStore
	WagerStore   domain.WagerStore
	AuditStore   domain.AuditStore
	BalanceStore domain.BalanceStore

	LockManager      domain.LockManager
	ObservationCache *redis.ObservationCache

	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.ArchiveImpl

	Notifier *notify.Notifier

	// HealthDeps names each infrastructure dependency the readiness
	// endpoint should ping before reporting ready.
	HealthDeps map[string]handler.Pinger
}

// treasurySeed names the fixed treasury account every market's creation fee
// is credited to. It is derived by hashing a constant label rather than
// accepted as configuration, matching ledger.New's stated design (see
// DESIGN.md, Open Question 2).
var treasurySeed = "oraclesettle/treasury"

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown to release resources. It also wires the resolution
// driver when cfg.Mode calls for it.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	deps, cleanup, err := wireInfra(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Mode == "driver" || cfg.Mode == "full" {
		d, err := wireDriver(deps, cfg, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Driver = d
	}

	return deps, cleanup, nil
}

// WireOperator constructs the subset of dependencies settlectl needs:
// durable stores and the in-memory ledger they mirror, but never the
// resolution driver, regardless of cfg.Mode. The CLI supplies the oracle
// identity for resolve instructions directly on the command line instead of
// loading the signing key.
func WireOperator(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	return wireInfra(ctx, cfg, slog.Default())
}

// wireInfra constructs every dependency except the resolution driver:
// the in-memory ledger, the durable Postgres mirror, the optional Redis
// lock manager and observation cache, the optional S3 archiver, and the
// notification senders.
func wireInfra(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		HealthDeps: map[string]handler.Pinger{},
	}

	treasury := domain.Identity(ledger.DeriveMarketKey(treasurySeed))
	deps.Ledger = ledger.New(treasury)

	// --- PostgreSQL: durable ledger mirror and audit trail ---
	if cfg.Postgres.DSN != "" || cfg.Postgres.Host != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.WagerStore = postgres.NewWagerStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.BalanceStore = postgres.NewBalanceStore(pool)
		deps.HealthDeps["postgres"] = pgClient
	}

	// --- Redis: distributed lock manager and observation cache ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.LockManager = redis.NewLockManager(redisClient)
		deps.ObservationCache = redis.NewObservationCache(redisClient, cfg.Driver.StalenessLimit())
		deps.HealthDeps["redis"] = redisClient
	}

	// --- S3: compliance archival ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		writer := s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobWriter = writer
		deps.BlobReader = reader

		if deps.MarketStore != nil && deps.WagerStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(writer, deps.MarketStore, deps.WagerStore, deps.AuditStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireDriver constructs the off-chain resolution driver: it loads the
// oracle signing key, builds the external feed composite, derives the
// oracle's ledger identity from the key material, and wires in whatever
// durable stores, distributed lock, observation cache, and notifier
// wireInfra already built onto deps.
func wireDriver(deps *Dependencies, cfg *config.Config, logger *slog.Logger) (*driver.Driver, error) {
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Driver.OracleRawKey,
		EncryptedKeyPath: cfg.Driver.OracleKeypairPath,
		KeyPassword:      cfg.Driver.OracleKeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: oracle key: %w", err)
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("wire: oracle key is not valid hex: %w", err)
	}
	oracleID, err := domain.IdentityFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("wire: oracle key: %w", err)
	}

	primary := feed.NewDexScreenerProvider(cfg.Feed.DexScreenerBaseURL, cfg.Driver.RequestTimeout())
	var fallback feed.Provider
	if cfg.Feed.BirdeyeAPIKey != "" {
		fallback = feed.NewBirdeyeProvider(cfg.Feed.BirdeyeBaseURL, cfg.Feed.BirdeyeAPIKey, cfg.Driver.RequestTimeout())
	}
	composite := feed.NewComposite(primary, fallback, cfg.Driver.MaxRetries, cfg.Driver.RetryDelay())

	driverCfg := driver.Config{
		CheckInterval:  cfg.Driver.CheckInterval(),
		StalenessLimit: cfg.Driver.StalenessLimit(),
		RequestTimeout: cfg.Driver.RequestTimeout(),
	}

	driverDeps := driver.Deps{
		MarketStore: deps.MarketStore,
		AuditStore:  deps.AuditStore,
		LockManager: deps.LockManager,
		Notifier:    deps.Notifier,
	}
	// deps.ObservationCache is a concrete *redis.ObservationCache; assigning
	// a nil pointer straight into the driver.ObservationCache interface
	// field would box a non-nil interface around a nil value, so only wire
	// it in when Redis was actually configured.
	if deps.ObservationCache != nil {
		driverDeps.ObservationCache = deps.ObservationCache
	}

	return driver.New(deps.Ledger, composite, oracleID, driverCfg, driverDeps, logger), nil
}
