// Package settlement implements the four instruction handlers — create,
// wager, resolve, claim — as total functions from (prior ledger state,
// signed inputs, clock) to (new ledger state, transfers) or a typed
// failure. Grounded directly on
// _examples/original_source/contracts/src/parimutuel.rs's
// initialize_market/place_bet/resolve_market/claim_reward.
package settlement

import (
	"github.com/oraclesettle/parimutuel/internal/arith"
	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/ledger"
)

// CreationFee is the fixed fee, in stake-base units, transferred from
// creator to treasury on every successful create. Matches
// parimutuel.rs's MARKET_CREATION_FEE and SPEC_FULL.md §6 (the 15_000
// figure in spec.md §4.3.1 is a unit-scale inconsistency within the
// distilled spec itself; this value follows both §6 and the original
// source, which agree).
const CreationFee uint64 = 15_000_000

// ResolveSkewTolerance is the maximum number of seconds an observation's
// timestamp may sit ahead of the handler's clock before it is rejected as
// STALE_DATA.
const ResolveSkewTolerance int64 = 300

// toArithCode maps an arith.Code to the matching settlement.Code.
func toArithCode(c arith.Code) Code {
	if c == arith.DivideByZero {
		return DivideByZero
	}
	return Overflow
}

// Create implements spec.md §4.3.1. now is the handler's wall-clock
// reading (seconds since epoch).
func Create(l *ledger.Ledger, seed string, creator, oracle domain.Identity, trackedAsset string, targetCap uint64, deadline int64, now int64) (domain.Market, *Error) {
	if targetCap == 0 {
		return domain.Market{}, fail(InvalidAmount, "target_capitalization must be > 0")
	}
	if deadline <= now {
		return domain.Market{}, fail(InvalidDeadline, "deadline must be in the future")
	}

	key := ledger.DeriveMarketKey(seed)
	mu := l.LockMarket(key)
	mu.Lock()
	defer mu.Unlock()

	if _, exists := l.GetMarket(key); exists {
		return domain.Market{}, fail(InvalidAmount, "market already exists for this seed")
	}

	if l.BalanceOf(creator) < CreationFee {
		return domain.Market{}, fail(InsufficientFunds, "creator balance below creation fee")
	}

	txn := l.Begin()
	if !txn.DebitParticipant(creator, CreationFee) {
		return domain.Market{}, fail(InsufficientFunds, "creator balance below creation fee")
	}
	txn.CreditTreasury(CreationFee)
	txn.Commit()

	m := domain.Market{
		Key:                  key,
		Seed:                 seed,
		CreatorID:            creator,
		OracleID:             oracle,
		TrackedAsset:         trackedAsset,
		TargetCapitalization: targetCap,
		Deadline:             deadline,
		YesPool:              0,
		NoPool:               0,
		Status:               domain.StatusOpen,
		CreatedAt:            now,
	}
	l.PutMarket(m)
	return m, nil
}

// Wager implements spec.md §4.3.2.
func Wager(l *ledger.Ledger, participant domain.Identity, marketKey domain.MarketKey, amount uint64, side domain.Side, now int64) (domain.Wager, *Error) {
	if amount == 0 {
		return domain.Wager{}, fail(InvalidAmount, "amount must be > 0")
	}

	mu := l.LockMarket(marketKey)
	mu.Lock()
	defer mu.Unlock()

	m, ok := l.GetMarket(marketKey)
	if !ok {
		return domain.Wager{}, fail(MarketResolved, "market does not exist")
	}
	if m.Status != domain.StatusOpen {
		return domain.Wager{}, fail(MarketResolved, "market is not open")
	}
	if now >= m.Deadline {
		return domain.Wager{}, fail(DeadlinePassed, "deadline has passed")
	}

	wagerKey := ledger.DeriveWagerKey(marketKey, participant)
	existing, hadWager := l.GetWager(wagerKey)
	if hadWager && existing.Side != side {
		return domain.Wager{}, fail(InvalidAmount, "cannot wager opposite side of an existing wager")
	}

	var newYes, newNo uint64 = m.YesPool, m.NoPool
	var ok2 bool
	var code arith.Code
	if side == domain.SideYes {
		newYes, ok2, code = arith.CheckedAdd(m.YesPool, amount)
	} else {
		newNo, ok2, code = arith.CheckedAdd(m.NoPool, amount)
	}
	if !ok2 {
		return domain.Wager{}, fail(toArithCode(code), "pool addition overflowed")
	}

	escrowKey := ledger.DeriveEscrowKey(marketKey)
	txn := l.Begin()
	if !txn.DebitParticipant(participant, amount) {
		return domain.Wager{}, fail(InsufficientFunds, "participant balance below wager amount")
	}
	txn.CreditEscrow(escrowKey, amount)
	txn.Commit()

	m.YesPool, m.NoPool = newYes, newNo
	l.PutMarket(m)

	newStake := amount
	if hadWager {
		stake, ok3, code3 := arith.CheckedAdd(existing.Stake, amount)
		if !ok3 {
			return domain.Wager{}, fail(toArithCode(code3), "stake addition overflowed")
		}
		newStake = stake
	}
	w := domain.Wager{
		Key:           wagerKey,
		MarketKey:     marketKey,
		ParticipantID: participant,
		Stake:         newStake,
		Side:          side,
		Claimed:       false,
	}
	l.PutWager(w)
	return w, nil
}

// Resolve implements spec.md §4.3.3.
func Resolve(l *ledger.Ledger, oracle domain.Identity, marketKey domain.MarketKey, observedCap uint64, observedAt int64, now int64) (domain.Market, *Error) {
	mu := l.LockMarket(marketKey)
	mu.Lock()
	defer mu.Unlock()

	m, ok := l.GetMarket(marketKey)
	if !ok {
		return domain.Market{}, fail(MarketAlreadyResolved, "market does not exist")
	}
	if m.OracleID != oracle {
		return domain.Market{}, fail(Unauthorized, "signer is not the market's oracle")
	}
	if m.Status != domain.StatusOpen {
		return domain.Market{}, fail(MarketAlreadyResolved, "market already resolved")
	}
	if observedAt > now+ResolveSkewTolerance {
		return domain.Market{}, fail(StaleData, "observation timestamp too far in the future")
	}

	targetReached := observedCap >= m.TargetCapitalization
	deadlinePassed := now >= m.Deadline
	if !targetReached && !deadlinePassed {
		return domain.Market{}, fail(CannotResolveYet, "target not reached and deadline not passed")
	}

	if targetReached {
		m.Status = domain.StatusResolvedYes
		m.TargetReached = true
	} else {
		m.Status = domain.StatusResolvedNo
		m.TargetReached = false
	}
	m.ResolvedAt = now
	l.PutMarket(m)
	return m, nil
}

// Claim implements spec.md §4.3.4.
func Claim(l *ledger.Ledger, participant domain.Identity, marketKey domain.MarketKey) (uint64, *Error) {
	mu := l.LockMarket(marketKey)
	mu.Lock()
	defer mu.Unlock()

	m, ok := l.GetMarket(marketKey)
	if !ok {
		return 0, fail(MarketNotResolved, "market does not exist")
	}
	if m.Status == domain.StatusOpen {
		return 0, fail(MarketNotResolved, "market is still open")
	}

	wagerKey := ledger.DeriveWagerKey(marketKey, participant)
	w, hadWager := l.GetWager(wagerKey)
	if !hadWager {
		return 0, fail(NotWinner, "no wager for this participant on this market")
	}
	if w.Claimed {
		return 0, fail(AlreadyClaimed, "wager already claimed")
	}

	winningSide := domain.SideNo
	if m.Status == domain.StatusResolvedYes {
		winningSide = domain.SideYes
	}
	if w.Side != winningSide {
		return 0, fail(NotWinner, "wager is on the losing side")
	}

	winningPool := m.NoPool
	if winningSide == domain.SideYes {
		winningPool = m.YesPool
	}
	if winningPool == 0 {
		return 0, fail(EmptyPool, "winning pool is zero")
	}

	totalPool, ok1, code1 := arith.CheckedAdd(m.YesPool, m.NoPool)
	if !ok1 {
		return 0, fail(toArithCode(code1), "total pool addition overflowed")
	}

	reward, ok2, code2 := arith.MulDivWide(w.Stake, totalPool, winningPool)
	if !ok2 {
		return 0, fail(toArithCode(code2), "reward computation failed")
	}

	escrowKey := ledger.DeriveEscrowKey(marketKey)
	txn := l.Begin()
	txn.DebitEscrow(escrowKey, reward)
	txn.CreditParticipant(participant, reward)
	txn.Commit()

	w.Claimed = true
	l.PutWager(w)

	return reward, nil
}
