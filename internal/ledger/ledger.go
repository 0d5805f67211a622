// Package ledger is the authoritative in-memory data model for the
// settlement engine: markets, wagers, escrow vault balances, and the
// participant ledger balances instruction handlers debit and credit.
//
// The Ledger never exposes raw field mutation on Market or Wager; callers
// go through PutMarket/PutWager with a fully-formed value, so the
// "status changes at most once" invariant can only be violated by a
// handler that explicitly chooses to, not by accident.
package ledger

import (
	"sync"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// Ledger holds every market, wager, escrow vault, and participant balance
// for one settlement engine deployment. It is safe for concurrent use: map
// access is guarded by mu, and each market additionally has its own mutex
// so instruction handlers can serialize per-market work without blocking
// unrelated markets — standing in for the execution substrate's
// account-lock discipline that a real chain would provide for free.
type Ledger struct {
	mu sync.RWMutex

	treasury        domain.Identity
	treasuryBalance uint64

	balances map[domain.Identity]uint64
	markets  map[domain.MarketKey]domain.Market
	wagers   map[domain.WagerKey]domain.Wager
	escrow   map[domain.EscrowVaultKey]uint64

	marketLocks map[domain.MarketKey]*sync.Mutex
}

// New constructs an empty Ledger with the given fixed treasury identity.
// The treasury is constrained at construction time rather than accepted as
// a per-create instruction input (see DESIGN.md, Open Question 2).
func New(treasury domain.Identity) *Ledger {
	return &Ledger{
		treasury:    treasury,
		balances:    make(map[domain.Identity]uint64),
		markets:     make(map[domain.MarketKey]domain.Market),
		wagers:      make(map[domain.WagerKey]domain.Wager),
		escrow:      make(map[domain.EscrowVaultKey]uint64),
		marketLocks: make(map[domain.MarketKey]*sync.Mutex),
	}
}

// Treasury returns the fixed treasury identity.
func (l *Ledger) Treasury() domain.Identity {
	return l.treasury
}

// TreasuryBalance returns the treasury's accumulated creation fees.
func (l *Ledger) TreasuryBalance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.treasuryBalance
}

// Credit adds amount to id's ledger balance. Used by the operator CLI and
// test harnesses to fund participants; the settlement core never calls
// this itself, since it has no external payment rail to draw on (see
// SPEC_FULL.md GLOSSARY, "Ledger balance").
func (l *Ledger) Credit(id domain.Identity, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[id] += amount
}

// BalanceOf returns id's current ledger balance.
func (l *Ledger) BalanceOf(id domain.Identity) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[id]
}

// LockMarket returns the per-market mutex, creating it on first use. The
// caller is responsible for locking and unlocking it around the full span
// of one instruction's reads, mutations, and transfers.
func (l *Ledger) LockMarket(key domain.MarketKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.marketLocks[key]
	if !ok {
		m = &sync.Mutex{}
		l.marketLocks[key] = m
	}
	return m
}

// GetMarket returns the market stored under key, if any.
func (l *Ledger) GetMarket(key domain.MarketKey) (domain.Market, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.markets[key]
	return m, ok
}

// PutMarket stores m, overwriting any prior value under the same key.
func (l *Ledger) PutMarket(m domain.Market) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markets[m.Key] = m
}

// GetWager returns the wager stored under key, if any.
func (l *Ledger) GetWager(key domain.WagerKey) (domain.Wager, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wagers[key]
	return w, ok
}

// PutWager stores w, overwriting any prior value under the same key.
func (l *Ledger) PutWager(w domain.Wager) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wagers[w.Key] = w
}

// EscrowBalance returns the current balance of the escrow vault for a
// market.
func (l *Ledger) EscrowBalance(key domain.EscrowVaultKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.escrow[key]
}

// ListUnresolved returns every market whose status is OPEN. The slice is a
// snapshot; mutations after the call are not reflected in it. This backs
// the Resolution Driver's per-cycle enumeration (spec.md §4.4 step 1).
func (l *Ledger) ListUnresolved() []domain.Market {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Market, 0, len(l.markets))
	for _, m := range l.markets {
		if m.Status == domain.StatusOpen {
			out = append(out, m)
		}
	}
	return out
}

// Begin starts a scratch transaction against l. Handlers accumulate
// intended balance deltas here and call Commit only once every
// precondition and arithmetic step has succeeded, giving the
// all-or-nothing commit property spec.md §4.3 requires without a real
// chain underneath it.
func (l *Ledger) Begin() *Txn {
	return &Txn{
		l:        l,
		balances: make(map[domain.Identity]int64),
		escrow:   make(map[domain.EscrowVaultKey]int64),
	}
}

// Txn accumulates pending balance deltas for one instruction.
type Txn struct {
	l        *Ledger
	balances map[domain.Identity]int64
	escrow   map[domain.EscrowVaultKey]int64
	treasury int64
}

// DebitParticipant records that amount should be subtracted from id's
// ledger balance on commit. Returns false if the participant's current
// balance plus any already-pending delta in this txn is insufficient.
func (t *Txn) DebitParticipant(id domain.Identity, amount uint64) bool {
	current := int64(t.l.BalanceOf(id)) + t.balances[id]
	if current < int64(amount) {
		return false
	}
	t.balances[id] -= int64(amount)
	return true
}

// CreditEscrow records that amount should be added to the escrow vault at
// key on commit.
func (t *Txn) CreditEscrow(key domain.EscrowVaultKey, amount uint64) {
	t.escrow[key] += int64(amount)
}

// DebitEscrow records that amount should be subtracted from the escrow
// vault at key on commit.
func (t *Txn) DebitEscrow(key domain.EscrowVaultKey, amount uint64) {
	t.escrow[key] -= int64(amount)
}

// CreditTreasury records that amount should be added to the treasury
// balance on commit.
func (t *Txn) CreditTreasury(amount uint64) {
	t.treasury += int64(amount)
}

// CreditParticipant records that amount should be added to id's ledger
// balance on commit (used when a claim pays out to a participant).
func (t *Txn) CreditParticipant(id domain.Identity, amount uint64) {
	t.balances[id] += int64(amount)
}

// Commit atomically applies every pending delta. Callers must hold the
// relevant per-market lock for the duration of Begin..Commit.
func (t *Txn) Commit() {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	for id, delta := range t.balances {
		t.l.balances[id] = uint64(int64(t.l.balances[id]) + delta)
	}
	for key, delta := range t.escrow {
		t.l.escrow[key] = uint64(int64(t.l.escrow[key]) + delta)
	}
	t.l.treasuryBalance = uint64(int64(t.l.treasuryBalance) + t.treasury)
}
