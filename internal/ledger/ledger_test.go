package ledger

import (
	"testing"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

func id(b byte) domain.Identity {
	var i domain.Identity
	i[0] = b
	return i
}

func TestDeriveKeysStable(t *testing.T) {
	mk1 := DeriveMarketKey("seed-one")
	mk2 := DeriveMarketKey("seed-one")
	if mk1 != mk2 {
		t.Fatal("DeriveMarketKey is not deterministic for the same seed")
	}
	mk3 := DeriveMarketKey("seed-two")
	if mk1 == mk3 {
		t.Fatal("DeriveMarketKey collided for different seeds")
	}

	p := id(1)
	wk1 := DeriveWagerKey(mk1, p)
	wk2 := DeriveWagerKey(mk1, p)
	if wk1 != wk2 {
		t.Fatal("DeriveWagerKey is not deterministic")
	}
	ek := DeriveEscrowKey(mk1)
	if domain.Identity(ek) == domain.Identity(wk1) {
		t.Fatal("escrow and wager keys must differ due to distinct labels")
	}
}

func TestTxnCommitAtomicity(t *testing.T) {
	l := New(id(99))
	p := id(1)
	l.Credit(p, 100)

	txn := l.Begin()
	if !txn.DebitParticipant(p, 40) {
		t.Fatal("expected sufficient balance for debit")
	}
	ek := DeriveEscrowKey(DeriveMarketKey("m"))
	txn.CreditEscrow(ek, 40)
	txn.Commit()

	if got := l.BalanceOf(p); got != 60 {
		t.Fatalf("balance = %d, want 60", got)
	}
	if got := l.EscrowBalance(ek); got != 40 {
		t.Fatalf("escrow balance = %d, want 40", got)
	}
}

func TestTxnDebitInsufficientBalance(t *testing.T) {
	l := New(id(99))
	p := id(1)
	l.Credit(p, 10)

	txn := l.Begin()
	if txn.DebitParticipant(p, 20) {
		t.Fatal("expected debit to fail on insufficient balance")
	}
}

func TestListUnresolvedFiltersByStatus(t *testing.T) {
	l := New(id(99))
	open := domain.Market{Key: DeriveMarketKey("open"), Status: domain.StatusOpen}
	resolved := domain.Market{Key: DeriveMarketKey("resolved"), Status: domain.StatusResolvedYes}
	l.PutMarket(open)
	l.PutMarket(resolved)

	got := l.ListUnresolved()
	if len(got) != 1 || got[0].Key != open.Key {
		t.Fatalf("ListUnresolved = %+v, want only the open market", got)
	}
}
