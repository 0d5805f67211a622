package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL. settlectl
// hydrates a fresh in-memory Ledger from it before executing an instruction,
// since the CLI holds no ledger state between invocations.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given connection pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// GetBalance returns id's stored balance, or 0 if no row exists yet.
func (s *BalanceStore) GetBalance(ctx context.Context, id domain.Identity) (uint64, error) {
	var balance uint64
	err := s.pool.QueryRow(ctx, `SELECT balance FROM balances WHERE identity = $1`, id.String()).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: get balance %s: %w", id, err)
	}
	return balance, nil
}

// SetBalance upserts id's stored balance.
func (s *BalanceStore) SetBalance(ctx context.Context, id domain.Identity, balance uint64) error {
	const query = `
		INSERT INTO balances (identity, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, id.String(), balance); err != nil {
		return fmt.Errorf("postgres: set balance %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BalanceStore = (*BalanceStore)(nil)
