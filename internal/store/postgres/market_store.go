package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. It is the
// durable mirror of the in-memory ledger, consulted on process startup to
// rebuild state and written after every committed instruction.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `key, seed, creator_id, oracle_id, tracked_asset,
	target_capitalization, deadline, yes_pool, no_pool,
	status, target_reached, resolved_at, created_at`

// Upsert inserts or updates a single market row.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			key, seed, creator_id, oracle_id, tracked_asset,
			target_capitalization, deadline, yes_pool, no_pool,
			status, target_reached, resolved_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, NOW()
		)
		ON CONFLICT (key) DO UPDATE SET
			yes_pool       = EXCLUDED.yes_pool,
			no_pool        = EXCLUDED.no_pool,
			status         = EXCLUDED.status,
			target_reached = EXCLUDED.target_reached,
			resolved_at    = EXCLUDED.resolved_at,
			updated_at     = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.Key.String(), m.Seed, m.CreatorID.String(), m.OracleID.String(), m.TrackedAsset,
		m.TargetCapitalization, m.Deadline, m.YesPool, m.NoPool,
		int(m.Status), m.TargetReached, m.ResolvedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.Key, err)
	}
	return nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var key, creator, oracle string
	var status int

	err := row.Scan(
		&key, &m.Seed, &creator, &oracle, &m.TrackedAsset,
		&m.TargetCapitalization, &m.Deadline, &m.YesPool, &m.NoPool,
		&status, &m.TargetReached, &m.ResolvedAt, &m.CreatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}

	keyID, err := domain.IdentityFromString(key)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: decode market key %s: %w", key, err)
	}
	m.Key = domain.MarketKey(keyID)

	creatorID, err := domain.IdentityFromString(creator)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: decode creator id %s: %w", creator, err)
	}
	m.CreatorID = creatorID

	oracleID, err := domain.IdentityFromString(oracle)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: decode oracle id %s: %w", oracle, err)
	}
	m.OracleID = oracleID
	m.Status = domain.Status(status)

	return m, nil
}

// GetByKey retrieves a market by its deterministic key.
func (s *MarketStore) GetByKey(ctx context.Context, key domain.MarketKey) (domain.Market, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketCols+` FROM markets WHERE key = $1`, key.String())
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", key, err)
	}
	return m, nil
}

// ListOpen returns every market still in OPEN status. The driver calls it
// at the start of every cycle to rebuild the ledger's unresolved-market set.
func (s *MarketStore) ListOpen(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+marketCols+` FROM markets WHERE status = $1 ORDER BY created_at`, int(domain.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	defer rows.Close()
	return scanMarketRows(rows)
}

// ListAll returns markets in any status, paginated.
func (s *MarketStore) ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return scanMarketRows(rows)
}

func scanMarketRows(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market row: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return markets, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
