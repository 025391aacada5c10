package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pumpwatch/internal/observability"
	"pumpwatch/internal/storage"
)

// observe records one query's duration and outcome.
func observe(op string, start time.Time, err error) {
	observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), err)
}

// EventArchiveStore implements storage.EventArchive using ClickHouse.
// token_events is a plain MergeTree append log; duplicates are
// tolerated and collapsed at query time if needed.
type EventArchiveStore struct {
	conn *Conn
}

// NewEventArchiveStore creates a new EventArchiveStore.
func NewEventArchiveStore(conn *Conn) *EventArchiveStore {
	return &EventArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchiveStore)(nil)

// Append stores the given rows in one batch.
func (s *EventArchiveStore) Append(ctx context.Context, rows ...*storage.ArchiveRow) (err error) {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { observe("append", start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_events (
			mint, kind, signature, pool, trader, sol_amount, market_cap_sol, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.Mint, r.Kind, r.Signature, r.Pool, r.Trader,
			r.SolAmount, r.MarketCapSol, uint64(r.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByKind returns archived event counts grouped by kind, for
// operational spot checks.
func (s *EventArchiveStore) CountByKind(ctx context.Context) (map[string]uint64, error) {
	start := time.Now()
	rows, err := s.conn.Query(ctx, `
		SELECT kind, count(*) FROM token_events GROUP BY kind
	`)
	observe("count_by_kind", start, err)
	if err != nil {
		return nil, fmt.Errorf("query event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var kind string
		var n uint64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan event count row: %w", err)
		}
		counts[kind] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event count rows: %w", err)
	}

	return counts, nil
}
