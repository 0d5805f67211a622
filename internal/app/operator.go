package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// HydrateMarket loads a market and its wagers from the durable stores into
// the in-memory ledger, if a MarketStore is configured. settlectl calls this
// before executing an instruction, since each invocation is a new process
// with an empty ledger. ok is false when no matching market exists or no
// durable store is configured; settlectl's subcommands treat that as "market
// does not exist" and stop with an error.
func (d *Dependencies) HydrateMarket(ctx context.Context, key domain.MarketKey) (ok bool, err error) {
	if d.MarketStore == nil {
		return false, nil
	}
	m, err := d.MarketStore.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("app: hydrate market: %w", err)
	}
	d.Ledger.PutMarket(m)

	if d.WagerStore != nil {
		wagers, err := d.WagerStore.ListByMarket(ctx, key)
		if err != nil {
			return true, fmt.Errorf("app: hydrate wagers: %w", err)
		}
		for _, w := range wagers {
			d.Ledger.PutWager(w)
		}
	}
	return true, nil
}

// HydrateBalance loads id's stored balance into the in-memory ledger.
func (d *Dependencies) HydrateBalance(ctx context.Context, id domain.Identity) error {
	if d.BalanceStore == nil {
		return nil
	}
	bal, err := d.BalanceStore.GetBalance(ctx, id)
	if err != nil {
		return fmt.Errorf("app: hydrate balance: %w", err)
	}
	d.Ledger.Credit(id, bal)
	return nil
}

// PersistMarket writes the market stored in the ledger under key back to the
// durable market mirror, if one is configured.
func (d *Dependencies) PersistMarket(ctx context.Context, key domain.MarketKey) error {
	if d.MarketStore == nil {
		return nil
	}
	m, ok := d.Ledger.GetMarket(key)
	if !ok {
		return fmt.Errorf("app: persist market: %s not present in ledger", key)
	}
	if err := d.MarketStore.Upsert(ctx, m); err != nil {
		return fmt.Errorf("app: persist market: %w", err)
	}
	return nil
}

// PersistWager writes the wager stored in the ledger under key back to the
// durable wager mirror, if one is configured.
func (d *Dependencies) PersistWager(ctx context.Context, key domain.WagerKey) error {
	if d.WagerStore == nil {
		return nil
	}
	w, ok := d.Ledger.GetWager(key)
	if !ok {
		return fmt.Errorf("app: persist wager: %s not present in ledger", key)
	}
	if err := d.WagerStore.Upsert(ctx, w); err != nil {
		return fmt.Errorf("app: persist wager: %w", err)
	}
	return nil
}

// PersistBalance writes id's current ledger balance back to the durable
// balance mirror, if one is configured.
func (d *Dependencies) PersistBalance(ctx context.Context, id domain.Identity) error {
	if d.BalanceStore == nil {
		return nil
	}
	if err := d.BalanceStore.SetBalance(ctx, id, d.Ledger.BalanceOf(id)); err != nil {
		return fmt.Errorf("app: persist balance: %w", err)
	}
	return nil
}

// LogAudit appends one entry to the audit trail, if an AuditStore is
// configured. settlectl calls this after every instruction outcome,
// successful or rejected.
func (d *Dependencies) LogAudit(ctx context.Context, event string, detail map[string]any) error {
	if d.AuditStore == nil {
		return nil
	}
	if err := d.AuditStore.Log(ctx, event, detail); err != nil {
		return fmt.Errorf("app: log audit: %w", err)
	}
	return nil
}
