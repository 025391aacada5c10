package ingest

import (
	"context"
	"errors"
	"log"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/feed"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/storage"
)

// RunnerOptions configures a Runner. Feed, Normalizer and Store are
// required; Archive is optional.
type RunnerOptions struct {
	Feed       feed.Client
	Topics     []feed.Topic
	Normalizer *Normalizer
	Store      storage.TokenStore
	Archive    storage.EventArchive
	Logger     *log.Logger
}

// Runner consumes the feed and persists what it sees: token creations
// are normalized and upserted, every recognized event is appended to
// the archive when one is configured. Storage errors are logged and
// absorbed so one bad write never stops the stream.
type Runner struct {
	feed       feed.Client
	topics     []feed.Topic
	normalizer *Normalizer
	store      storage.TokenStore
	archive    storage.EventArchive
	logger     *log.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Feed == nil {
		return nil, errors.New("feed client is required")
	}
	if opts.Normalizer == nil {
		return nil, errors.New("normalizer is required")
	}
	if opts.Store == nil {
		return nil, errors.New("token store is required")
	}
	if len(opts.Topics) == 0 {
		opts.Topics = []feed.Topic{feed.TopicNewToken}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Runner{
		feed:       opts.Feed,
		topics:     opts.Topics,
		normalizer: opts.Normalizer,
		store:      opts.Store,
		archive:    opts.Archive,
		logger:     opts.Logger,
	}, nil
}

// Run subscribes and processes events until ctx is cancelled or the
// subscription channel closes.
func (r *Runner) Run(ctx context.Context) error {
	sub, err := r.feed.Subscribe(ctx, r.topics...)
	if err != nil {
		return err
	}
	defer sub.Cancel()

	r.logger.Printf("ingestion started, topics=%v", r.topics)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				r.logger.Printf("feed subscription closed, stopping ingestion")
				return nil
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Runner) handle(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.KindNewToken:
		rec := r.normalizer.Normalize(ctx, ev.NewToken)
		if err := r.store.Upsert(ctx, rec); err != nil {
			observability.RecordIngestError("upsert")
			r.logger.Printf("upsert token %s failed: %v", rec.Mint, err)
		} else {
			observability.RecordTokenUpserted(rec.TimestampMs)
		}
		r.appendArchive(ctx, newTokenArchiveRow(ev.NewToken))
	case domain.KindMigration:
		r.appendArchive(ctx, migrationArchiveRow(ev.Migration))
	case domain.KindTrade:
		r.appendArchive(ctx, tradeArchiveRow(ev.Trade))
	}
}

func (r *Runner) appendArchive(ctx context.Context, row *storage.ArchiveRow) {
	if r.archive == nil {
		return
	}
	if err := r.archive.Append(ctx, row); err != nil {
		observability.RecordIngestError("archive")
		r.logger.Printf("archive %s event for %s failed: %v", row.Kind, row.Mint, err)
		return
	}
	observability.RecordEventArchived(row.Kind)
}

func newTokenArchiveRow(ev *domain.NewTokenEvent) *storage.ArchiveRow {
	return &storage.ArchiveRow{
		Mint:         ev.Mint,
		Kind:         domain.KindNewToken.String(),
		Signature:    ev.Signature,
		Pool:         ev.Pool,
		Trader:       ev.TraderPublicKey,
		SolAmount:    ev.SolAmount,
		MarketCapSol: ev.MarketCapSol,
		TimestampMs:  ev.TimestampMs,
	}
}

func migrationArchiveRow(ev *domain.MigrationEvent) *storage.ArchiveRow {
	return &storage.ArchiveRow{
		Mint:        ev.Mint,
		Kind:        domain.KindMigration.String(),
		Signature:   ev.Signature,
		Pool:        ev.Pool,
		SolAmount:   ev.SolAmount,
		TimestampMs: ev.TimestampMs,
	}
}

func tradeArchiveRow(ev *domain.TradeEvent) *storage.ArchiveRow {
	return &storage.ArchiveRow{
		Mint:         ev.Mint,
		Kind:         ev.TxType,
		Signature:    ev.Signature,
		Pool:         ev.Pool,
		Trader:       ev.TraderPublicKey,
		SolAmount:    ev.SolAmount,
		MarketCapSol: ev.MarketCapSol,
		TimestampMs:  ev.TimestampMs,
	}
}
