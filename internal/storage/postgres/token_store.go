package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/storage"
)

// observe records one query's duration and outcome.
func observe(op string, start time.Time, err error) {
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), err)
}

// TokenStore implements storage.TokenStore using PostgreSQL. Upsert
// atomicity relies on ON CONFLICT, so concurrent ingestion instances
// need no application-level locking.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	mint, name, symbol, uri, image, description, creator,
	market_cap_sol, pool, website, twitter, telegram, discord, event_ts
`

// Upsert inserts the record or overwrites the mutable fields of an
// existing one. The mint and created_at stay untouched on conflict.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (mint) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			uri = EXCLUDED.uri,
			image = EXCLUDED.image,
			description = EXCLUDED.description,
			creator = EXCLUDED.creator,
			market_cap_sol = EXCLUDED.market_cap_sol,
			pool = EXCLUDED.pool,
			website = EXCLUDED.website,
			twitter = EXCLUDED.twitter,
			telegram = EXCLUDED.telegram,
			discord = EXCLUDED.discord,
			event_ts = EXCLUDED.event_ts,
			updated_at = NOW()
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		t.Mint,
		t.Name,
		t.Symbol,
		t.URI,
		t.Image,
		t.Description,
		t.Creator,
		t.MarketCapSol,
		t.Pool,
		t.Socials.Website,
		t.Socials.Twitter,
		t.Socials.Telegram,
		t.Socials.Discord,
		t.TimestampMs,
	)
	observe("upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// Get retrieves a record by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE mint = $1`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, mint)
	t, err := scanToken(row)
	if isNotFoundError(err) {
		// A miss is a normal outcome, not a query error.
		observe("get", start, nil)
		return nil, storage.ErrNotFound
	}
	observe("get", start, err)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// GetRecent returns up to limit records, newest-first by event time.
func (s *TokenStore) GetRecent(ctx context.Context, limit int) ([]*domain.TokenRecord, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		ORDER BY event_ts DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, limit)
	observe("get_recent", start, err)
	if err != nil {
		return nil, fmt.Errorf("query recent tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Search matches query case-insensitively against mint, name and
// symbol, newest-first.
func (s *TokenStore) Search(ctx context.Context, query string, limit int) ([]*domain.TokenRecord, error) {
	pattern := "%" + escapeLike(query) + "%"

	sql := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE mint ILIKE $1 OR name ILIKE $1 OR symbol ILIKE $1
		ORDER BY event_ts DESC
		LIMIT $2
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, sql, pattern, limit)
	observe("search", start, err)
	if err != nil {
		return nil, fmt.Errorf("search tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Count returns the number of stored records.
func (s *TokenStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&count)
	observe("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied query.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// scanToken scans a single row into a TokenRecord.
func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var t domain.TokenRecord

	err := row.Scan(
		&t.Mint,
		&t.Name,
		&t.Symbol,
		&t.URI,
		&t.Image,
		&t.Description,
		&t.Creator,
		&t.MarketCapSol,
		&t.Pool,
		&t.Socials.Website,
		&t.Socials.Twitter,
		&t.Socials.Telegram,
		&t.Socials.Discord,
		&t.TimestampMs,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTokens scans multiple rows.
func scanTokens(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	var tokens []*domain.TokenRecord

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
