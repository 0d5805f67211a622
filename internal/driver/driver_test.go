package driver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/feed"
	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/settlement"
)

type stubFetcher struct {
	obs feed.Observation
	ok  bool
}

func (s *stubFetcher) Name() string { return "stub" }
func (s *stubFetcher) Fetch(ctx context.Context, trackedAsset string) (feed.Observation, bool) {
	return s.obs, s.ok
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func idn(b byte) domain.Identity {
	var i domain.Identity
	i[0] = b
	return i
}

func TestDriverResolvesWhenTargetReached(t *testing.T) {
	treasury, creator, oracle, participant := idn(1), idn(2), idn(3), idn(4)
	l := ledger.New(treasury)
	l.Credit(creator, 1_000_000_000)
	l.Credit(participant, 1_000_000_000)

	now := int64(1_700_000_000)
	m, err := settlement.Create(l, "driver-test", creator, oracle, "ASSET", 1_000, now+3600, now)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := settlement.Wager(l, participant, m.Key, 500, domain.SideYes, now+1); err != nil {
		t.Fatalf("wager failed: %v", err)
	}

	fetcher := &stubFetcher{obs: feed.Observation{CapitalizationUSD: 2_000, ObservedAt: now}, ok: true}
	cfg := DefaultConfig()
	d := New(l, fetcher, oracle, cfg, Deps{}, quietLogger())
	d.clock = func() time.Time { return time.Unix(now, 0) }

	d.runCycle(context.Background())

	resolved, _ := l.GetMarket(m.Key)
	if resolved.Status != domain.StatusResolvedYes {
		t.Fatalf("status = %v, want RESOLVED_YES", resolved.Status)
	}
}

func TestDriverSkipsOtherOraclesMarket(t *testing.T) {
	treasury, creator, oracle, otherOracle := idn(1), idn(2), idn(3), idn(9)
	l := ledger.New(treasury)
	l.Credit(creator, 1_000_000_000)

	now := int64(1_700_000_000)
	m, _ := settlement.Create(l, "driver-skip", creator, oracle, "ASSET", 1_000, now+3600, now)

	fetcher := &stubFetcher{obs: feed.Observation{CapitalizationUSD: 2_000, ObservedAt: now}, ok: true}
	d := New(l, fetcher, otherOracle, DefaultConfig(), Deps{}, quietLogger())
	d.clock = func() time.Time { return time.Unix(now, 0) }

	d.runCycle(context.Background())

	after, _ := l.GetMarket(m.Key)
	if after.Status != domain.StatusOpen {
		t.Fatalf("status = %v, want OPEN (driver must not resolve a market owned by a different oracle)", after.Status)
	}
}

func TestDriverSkipsStaleObservation(t *testing.T) {
	treasury, creator, oracle := idn(1), idn(2), idn(3)
	l := ledger.New(treasury)
	l.Credit(creator, 1_000_000_000)

	now := int64(1_700_000_000)
	m, _ := settlement.Create(l, "driver-stale", creator, oracle, "ASSET", 1_000, now+3600, now)

	fetcher := &stubFetcher{obs: feed.Observation{CapitalizationUSD: 2_000, ObservedAt: now - 1000}, ok: true}
	d := New(l, fetcher, oracle, DefaultConfig(), Deps{}, quietLogger())
	d.clock = func() time.Time { return time.Unix(now, 0) }

	d.runCycle(context.Background())

	after, _ := l.GetMarket(m.Key)
	if after.Status != domain.StatusOpen {
		t.Fatalf("status = %v, want OPEN (stale observation must not resolve the market)", after.Status)
	}
}

// stubMarketStore is a minimal in-memory domain.MarketStore for exercising
// hydration and persistence without a real Postgres instance.
type stubMarketStore struct {
	markets map[domain.MarketKey]domain.Market
}

func newStubMarketStore() *stubMarketStore {
	return &stubMarketStore{markets: map[domain.MarketKey]domain.Market{}}
}

func (s *stubMarketStore) Upsert(ctx context.Context, m domain.Market) error {
	s.markets[m.Key] = m
	return nil
}
func (s *stubMarketStore) GetByKey(ctx context.Context, key domain.MarketKey) (domain.Market, error) {
	m, ok := s.markets[key]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}
func (s *stubMarketStore) ListOpen(ctx context.Context) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == domain.StatusOpen {
			out = append(out, m)
		}
	}
	return out, nil
}
func (s *stubMarketStore) ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

// stubAuditStore records every logged event for assertions.
type stubAuditStore struct {
	events []string
}

func (s *stubAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	s.events = append(s.events, event)
	return nil
}
func (s *stubAuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// stubLockManager denies a single configured key, simulating a concurrent
// resolver already holding the distributed lock.
type stubLockManager struct {
	deny string
}

func (s *stubLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if key == s.deny {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

// stubNotifier records every dispatched event for assertions.
type stubNotifier struct {
	events []string
}

func (s *stubNotifier) Notify(ctx context.Context, event, title, message string) error {
	s.events = append(s.events, event)
	return nil
}

func TestDriverHydratesMarketFromDurableMirror(t *testing.T) {
	treasury, creator, oracle := idn(1), idn(2), idn(3)
	l := ledger.New(treasury)

	now := int64(1_700_000_000)
	m := domain.Market{
		Key:                  ledger.DeriveMarketKey("hydrate-test"),
		CreatorID:            creator,
		OracleID:             oracle,
		TrackedAsset:         "ASSET",
		TargetCapitalization: 1_000,
		Deadline:             now + 3600,
		Status:               domain.StatusOpen,
	}
	store := newStubMarketStore()
	store.markets[m.Key] = m

	fetcher := &stubFetcher{obs: feed.Observation{CapitalizationUSD: 2_000, ObservedAt: now}, ok: true}
	audit := &stubAuditStore{}
	notifier := &stubNotifier{}
	d := New(l, fetcher, oracle, DefaultConfig(), Deps{MarketStore: store, AuditStore: audit, Notifier: notifier}, quietLogger())
	d.clock = func() time.Time { return time.Unix(now, 0) }

	d.runCycle(context.Background())

	resolved, ok := l.GetMarket(m.Key)
	if !ok || resolved.Status != domain.StatusResolvedYes {
		t.Fatalf("market not resolved from hydrated state: ok=%v status=%v", ok, resolved.Status)
	}
	if persisted := store.markets[m.Key]; persisted.Status != domain.StatusResolvedYes {
		t.Fatalf("resolution was not persisted back to the durable mirror: status=%v", persisted.Status)
	}
	if len(audit.events) != 1 || audit.events[0] != "resolve" {
		t.Fatalf("audit events = %v, want [resolve]", audit.events)
	}
	if len(notifier.events) != 1 || notifier.events[0] != "market_resolved" {
		t.Fatalf("notifier events = %v, want [market_resolved]", notifier.events)
	}
}

func TestDriverSkipsMarketLockedByConcurrentResolver(t *testing.T) {
	treasury, creator, oracle := idn(1), idn(2), idn(3)
	l := ledger.New(treasury)
	l.Credit(creator, 1_000_000_000)

	now := int64(1_700_000_000)
	m, _ := settlement.Create(l, "driver-locked", creator, oracle, "ASSET", 1_000, now+3600, now)

	fetcher := &stubFetcher{obs: feed.Observation{CapitalizationUSD: 2_000, ObservedAt: now}, ok: true}
	lock := &stubLockManager{deny: "market:" + m.Key.String()}
	d := New(l, fetcher, oracle, DefaultConfig(), Deps{LockManager: lock}, quietLogger())
	d.clock = func() time.Time { return time.Unix(now, 0) }

	d.runCycle(context.Background())

	after, _ := l.GetMarket(m.Key)
	if after.Status != domain.StatusOpen {
		t.Fatalf("status = %v, want OPEN (a locked market must not be resolved by this driver)", after.Status)
	}
}
