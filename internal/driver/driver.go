// Package driver implements the off-chain Resolution Driver: a
// long-running, single-threaded process that polls the ledger's open
// markets, fetches capitalization observations through the External Feed
// Adapter, and submits resolve instructions signed by the oracle identity.
//
// Grounded on the polling-loop shape of
// _examples/original_source/backend/monitoring/blockchain_monitor.py's
// BlockchainMonitor, and on internal/app/modes.go's errgroup-composed
// subsystem goroutine pattern for how Run is launched from cmd/settled.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/feed"
	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/settlement"
)

// Config holds the driver's tunables, sourced from SPEC_FULL.md §6's
// [driver] config section.
type Config struct {
	CheckInterval  time.Duration
	StalenessLimit time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns the spec's stated defaults: 60s cycle, 300s
// staleness limit.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  60 * time.Second,
		StalenessLimit: 300 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Clock abstracts time.Now so cycles are deterministically testable.
type Clock func() time.Time

// Notifier raises operational alerts on resolution outcomes, satisfied by
// *notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ObservationCache caches the most recent feed observation per tracked
// asset so a burst of cycles against the same asset does not re-hit
// upstream providers every time, satisfied by *redis.ObservationCache.
type ObservationCache interface {
	Get(ctx context.Context, trackedAsset string) (feed.Observation, error)
	Set(ctx context.Context, trackedAsset string, obs feed.Observation) error
}

// Deps bundles the driver's optional durable-mirror and operability
// dependencies. Every field may be nil; a nil field disables the
// corresponding behavior rather than erroring, so a single-process
// deployment with no Postgres/Redis/notifier configured still runs
// correctly against the in-memory ledger alone.
type Deps struct {
	// MarketStore, when set, is consulted at the start of every cycle to
	// hydrate open markets created by other processes (settlectl, or a
	// prior instance of this one) into the in-memory ledger, and is
	// written back to after every resolution.
	MarketStore domain.MarketStore
	// AuditStore, when set, receives one entry per resolution outcome.
	AuditStore domain.AuditStore
	// LockManager, when set, serializes resolution of a given market
	// across multiple driver processes sharing one durable mirror, so
	// the oracle signing key is never used concurrently for the same
	// market (spec.md §4.4, §5).
	LockManager domain.LockManager
	// ObservationCache, when set, is checked before hitting the feed
	// providers and updated after a successful fetch.
	ObservationCache ObservationCache
	// Notifier, when set, is notified of market_resolved, resolve_failed,
	// and driver_error events.
	Notifier Notifier
}

// Driver is the long-running resolution process. It holds the oracle
// signing identity in memory for the process lifetime and never performs
// parallel market resolution, to keep signing-key use serial (spec.md
// §4.4, §5).
type Driver struct {
	ledger   *ledger.Ledger
	fetcher  feed.Provider
	oracleID domain.Identity
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	clock    Clock
}

// New constructs a Driver. fetcher is typically a *feed.Composite wiring
// the primary and fallback providers together.
func New(l *ledger.Ledger, fetcher feed.Provider, oracleID domain.Identity, cfg Config, deps Deps, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		ledger:   l,
		fetcher:  fetcher,
		oracleID: oracleID,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(slog.String("component", "driver")),
		clock:    time.Now,
	}
}

// Run executes the polling loop until ctx is cancelled. Cancellation is
// honored only at sub-cycle boundaries — between markets, and between
// cycles — never mid-submission, so no resolution is ever interrupted
// (spec.md §4.4 "Cancellation").
func (d *Driver) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "resolution driver starting",
		slog.Duration("check_interval", d.cfg.CheckInterval),
		slog.Duration("staleness_limit", d.cfg.StalenessLimit),
	)

	for {
		d.runCycle(ctx)

		select {
		case <-ctx.Done():
			d.logger.Info("resolution driver stopping")
			return ctx.Err()
		case <-time.After(d.cfg.CheckInterval):
		}
	}
}

// runCycle implements the single-cycle algorithm of spec.md §4.4 steps
// 1-2: hydrate open markets from the durable mirror, enumerate open
// markets, and for each in sequence, verify oracle ownership,
// fetch-with-retry, check staleness, decide, submit.
func (d *Driver) runCycle(ctx context.Context) {
	d.hydrateOpenMarkets(ctx)

	markets := d.ledger.ListUnresolved()
	d.logger.DebugContext(ctx, "cycle starting", slog.Int("open_markets", len(markets)))

	for _, m := range markets {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d.processMarket(ctx, m)
	}
}

// hydrateOpenMarkets loads every open market from the durable mirror into
// the in-memory ledger, so a market created by a separate settlectl (or
// driver) process is visible to ListUnresolved. A no-op when no
// MarketStore is configured.
func (d *Driver) hydrateOpenMarkets(ctx context.Context) {
	if d.deps.MarketStore == nil {
		return
	}
	markets, err := d.deps.MarketStore.ListOpen(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "hydrate open markets failed", slog.String("error", err.Error()))
		d.notify(ctx, "driver_error", "hydrate open markets failed", err.Error())
		return
	}
	for _, m := range markets {
		d.ledger.PutMarket(m)
	}
}

func (d *Driver) processMarket(ctx context.Context, m domain.Market) {
	log := d.logger.With(slog.String("market", m.Key.String()))

	if m.OracleID != d.oracleID {
		log.Debug("skipping market owned by a different oracle")
		return
	}

	if d.deps.LockManager != nil {
		unlock, err := d.deps.LockManager.Acquire(ctx, "market:"+m.Key.String(), d.cfg.CheckInterval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				log.Debug("skipping market locked by a concurrent resolver")
				return
			}
			log.Error("acquire distributed lock failed", slog.String("error", err.Error()))
			return
		}
		defer unlock()
	}

	obs, ok := d.observe(ctx, m.TrackedAsset)
	if !ok {
		log.Warn("no observation returned by any feed provider this cycle")
		return
	}

	now := d.clock().Unix()
	if now-obs.ObservedAt > int64(d.cfg.StalenessLimit.Seconds()) {
		log.Warn("observation too stale, skipping", slog.Int64("age_s", now-obs.ObservedAt))
		return
	}

	targetReached := obs.CapitalizationUSD >= m.TargetCapitalization
	deadlinePassed := now >= m.Deadline
	if !targetReached && !deadlinePassed {
		log.Debug("neither target reached nor deadline passed, skipping")
		return
	}

	resolved, err := settlement.Resolve(d.ledger, d.oracleID, m.Key, obs.CapitalizationUSD, obs.ObservedAt, now)
	if err != nil {
		if err.Code == settlement.MarketAlreadyResolved {
			// Benign race with another resolver; treated as idempotent
			// per spec.md §4.4's Idempotence clause.
			log.Info("market already resolved by a concurrent resolver")
			return
		}
		log.Error("resolve submission failed", slog.String("code", err.Code.String()), slog.String("msg", err.Msg))
		if d.deps.AuditStore != nil {
			if aerr := d.deps.AuditStore.Log(ctx, "resolve.rejected", map[string]any{
				"market": m.Key.String(),
				"code":   err.Code.String(),
				"msg":    err.Msg,
			}); aerr != nil {
				log.Error("audit log failed", slog.String("error", aerr.Error()))
			}
		}
		d.notify(ctx, "resolve_failed", "resolve rejected for "+m.Key.String(), err.Msg)
		return
	}

	d.persistResolution(ctx, resolved, obs)

	log.Info("market resolved",
		slog.String("status", resolved.Status.String()),
		slog.Uint64("observed_capitalization", obs.CapitalizationUSD),
	)
	d.notify(ctx, "market_resolved", "market "+resolved.Key.String()+" resolved",
		resolved.Status.String())
}

// observe returns the freshest available observation for trackedAsset,
// preferring a cached one over hitting the feed providers again. Each
// provider applies its own per-request timeout and the composite applies
// its own retry schedule (spec.md §4.5), so the cycle's ctx is passed
// through unmodified rather than wrapped in a further deadline here.
func (d *Driver) observe(ctx context.Context, trackedAsset string) (feed.Observation, bool) {
	if d.deps.ObservationCache != nil {
		if obs, err := d.deps.ObservationCache.Get(ctx, trackedAsset); err == nil {
			return obs, true
		}
	}

	obs, ok := d.fetcher.Fetch(ctx, trackedAsset)
	if !ok {
		return feed.Observation{}, false
	}

	if d.deps.ObservationCache != nil {
		if err := d.deps.ObservationCache.Set(ctx, trackedAsset, obs); err != nil {
			d.logger.WarnContext(ctx, "cache observation failed", slog.String("error", err.Error()))
		}
	}
	return obs, true
}

// persistResolution writes a resolved market back to the durable mirror
// and appends an audit entry, when those stores are configured.
func (d *Driver) persistResolution(ctx context.Context, m domain.Market, obs feed.Observation) {
	if d.deps.MarketStore != nil {
		if err := d.deps.MarketStore.Upsert(ctx, m); err != nil {
			d.logger.ErrorContext(ctx, "persist resolved market failed",
				slog.String("market", m.Key.String()), slog.String("error", err.Error()))
		}
	}
	if d.deps.AuditStore != nil {
		if err := d.deps.AuditStore.Log(ctx, "resolve", map[string]any{
			"market":                  m.Key.String(),
			"status":                  m.Status.String(),
			"observed_capitalization": obs.CapitalizationUSD,
			"observed_at":             obs.ObservedAt,
		}); err != nil {
			d.logger.ErrorContext(ctx, "log resolve audit entry failed", slog.String("error", err.Error()))
		}
	}
}

func (d *Driver) notify(ctx context.Context, event, title, message string) {
	if d.deps.Notifier == nil {
		return
	}
	if err := d.deps.Notifier.Notify(ctx, event, title, message); err != nil {
		d.logger.WarnContext(ctx, "notification dispatch failed", slog.String("error", err.Error()))
	}
}
