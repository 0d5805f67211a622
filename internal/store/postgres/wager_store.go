package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// WagerStore implements domain.WagerStore using PostgreSQL.
type WagerStore struct {
	pool *pgxpool.Pool
}

// NewWagerStore creates a new WagerStore backed by the given connection pool.
func NewWagerStore(pool *pgxpool.Pool) *WagerStore {
	return &WagerStore{pool: pool}
}

const wagerCols = `key, market_key, participant_id, stake, side, claimed`

// Upsert inserts or updates a single wager row.
func (s *WagerStore) Upsert(ctx context.Context, w domain.Wager) error {
	const query = `
		INSERT INTO wagers (key, market_key, participant_id, stake, side, claimed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (key) DO UPDATE SET
			stake      = EXCLUDED.stake,
			claimed    = EXCLUDED.claimed,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		w.Key.String(), w.MarketKey.String(), w.ParticipantID.String(), w.Stake, bool(w.Side), w.Claimed,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert wager %s: %w", w.Key, err)
	}
	return nil
}

func scanWager(row pgx.Row) (domain.Wager, error) {
	var w domain.Wager
	var key, marketKey, participant string
	var side bool

	if err := row.Scan(&key, &marketKey, &participant, &w.Stake, &side, &w.Claimed); err != nil {
		return domain.Wager{}, err
	}

	keyID, err := domain.IdentityFromString(key)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("postgres: decode wager key %s: %w", key, err)
	}
	w.Key = domain.WagerKey(keyID)

	marketID, err := domain.IdentityFromString(marketKey)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("postgres: decode wager market key %s: %w", marketKey, err)
	}
	w.MarketKey = domain.MarketKey(marketID)

	participantID, err := domain.IdentityFromString(participant)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("postgres: decode wager participant id %s: %w", participant, err)
	}
	w.ParticipantID = participantID
	w.Side = domain.Side(side)

	return w, nil
}

// GetByKey retrieves a wager by its deterministic key.
func (s *WagerStore) GetByKey(ctx context.Context, key domain.WagerKey) (domain.Wager, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+wagerCols+` FROM wagers WHERE key = $1`, key.String())
	w, err := scanWager(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Wager{}, domain.ErrNotFound
		}
		return domain.Wager{}, fmt.Errorf("postgres: get wager %s: %w", key, err)
	}
	return w, nil
}

// ListByMarket returns every wager placed against one market.
func (s *WagerStore) ListByMarket(ctx context.Context, marketKey domain.MarketKey) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+wagerCols+` FROM wagers WHERE market_key = $1`, marketKey.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: list wagers for market %s: %w", marketKey, err)
	}
	defer rows.Close()

	var wagers []domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan wager row: %w", err)
		}
		wagers = append(wagers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: wager rows: %w", err)
	}
	return wagers, nil
}

// Compile-time interface check.
var _ domain.WagerStore = (*WagerStore)(nil)
