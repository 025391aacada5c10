package storage

import (
	"context"

	"pumpwatch/internal/domain"
)

// TokenStore provides access to observed token records, keyed by mint.
type TokenStore interface {
	// Upsert inserts the record or, when the mint already exists,
	// overwrites its mutable fields (last-write-wins). Idempotent:
	// applying the same record twice yields the same stored state.
	Upsert(ctx context.Context, t *domain.TokenRecord) error

	// Get retrieves a record by mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string) (*domain.TokenRecord, error)

	// GetRecent returns up to limit records ordered newest-first by
	// event timestamp.
	GetRecent(ctx context.Context, limit int) ([]*domain.TokenRecord, error)

	// Search performs a case-insensitive substring match over
	// mint/name/symbol, newest-first, up to limit records.
	Search(ctx context.Context, query string, limit int) ([]*domain.TokenRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}

// ArchiveRow is one accepted feed event in the append-only archive.
type ArchiveRow struct {
	Mint         string
	Kind         string // "create", "migrate", "buy", "sell"
	Signature    string
	Pool         string
	Trader       string
	SolAmount    float64
	MarketCapSol float64
	TimestampMs  int64
}

// EventArchive is an append-only log of accepted feed events, kept for
// offline analytics. Duplicates are tolerated; the archive is not a
// source of truth.
type EventArchive interface {
	// Append stores the given rows.
	Append(ctx context.Context, rows ...*ArchiveRow) error
}
