// Package ingest turns raw feed events into stored token records. The
// normalizer enriches token creations best-effort; the runner drives
// the subscribe/normalize/upsert loop.
package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/enrich"
	"pumpwatch/internal/observability"
)

// MetadataFetcher retrieves off-chain metadata JSON.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (*enrich.OffchainMetadata, error)
}

// OnchainLookup resolves metadata from chain accounts.
type OnchainLookup interface {
	Lookup(ctx context.Context, mint string) (*enrich.OnchainMetadata, error)
}

// DefaultEnrichTimeout bounds each enrichment stage per event.
const DefaultEnrichTimeout = 5 * time.Second

// Normalizer converts a token-creation event into a TokenRecord,
// filling missing display fields from off-chain metadata, then chain
// state, then deterministic placeholders. Normalize never fails: the
// worst case is a record of raw event fields plus placeholders.
type Normalizer struct {
	fetcher MetadataFetcher
	onchain OnchainLookup
	timeout time.Duration
	logger  *log.Logger
}

// NormalizerOptions configures a Normalizer. Fetcher and Onchain are
// optional; a nil stage is skipped.
type NormalizerOptions struct {
	Fetcher MetadataFetcher
	Onchain OnchainLookup
	Timeout time.Duration
	Logger  *log.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEnrichTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Normalizer{
		fetcher: opts.Fetcher,
		onchain: opts.Onchain,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Normalize builds the canonical record for a token-creation event.
func (n *Normalizer) Normalize(ctx context.Context, ev *domain.NewTokenEvent) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		Mint:         ev.Mint,
		Name:         ev.Name,
		Symbol:       ev.Symbol,
		URI:          ev.URI,
		Image:        ev.Image,
		Description:  ev.Description,
		Creator:      ev.TraderPublicKey,
		MarketCapSol: ev.MarketCapSol,
		Pool:         ev.Pool,
		TimestampMs:  ev.TimestampMs,
	}
	if rec.Pool == "" {
		rec.Pool = domain.PoolPump
	}
	if rec.TimestampMs == 0 {
		rec.TimestampMs = time.Now().UnixMilli()
	}

	n.applyOffchain(ctx, rec)
	n.applyOnchain(ctx, rec)
	applyPlaceholders(rec)

	rec.Image = enrich.NormalizeImageURL(rec.Image)

	return rec
}

// applyOffchain fetches the uri document and merges its fields. A uri
// that is itself an image becomes the image directly.
func (n *Normalizer) applyOffchain(ctx context.Context, rec *domain.TokenRecord) {
	if rec.URI == "" || n.fetcher == nil {
		return
	}

	if enrich.LooksLikeImage(rec.URI) {
		if rec.Image == "" {
			rec.Image = rec.URI
		}
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	meta, err := n.fetcher.Fetch(fetchCtx, rec.URI)
	if err != nil {
		observability.RecordEnrichment("offchain", "error", time.Since(start).Seconds())
		n.logger.Printf("offchain metadata fetch failed for %s: %v", rec.Mint, err)
		return
	}
	observability.RecordEnrichment("offchain", "ok", time.Since(start).Seconds())

	if rec.Name == "" {
		rec.Name = meta.Name
	}
	if rec.Symbol == "" {
		rec.Symbol = meta.Symbol
	}
	if rec.Image == "" {
		rec.Image = meta.Image
	}
	if rec.Description == "" {
		rec.Description = meta.Description
	}
	if rec.Socials.Empty() {
		rec.Socials = domain.SocialLinks{
			Website:  meta.Website,
			Twitter:  meta.Twitter,
			Telegram: meta.Telegram,
			Discord:  meta.Discord,
		}
	}
}

// applyOnchain fills name/symbol from chain state when the event and
// off-chain metadata both left them empty.
func (n *Normalizer) applyOnchain(ctx context.Context, rec *domain.TokenRecord) {
	if n.onchain == nil || (rec.Name != "" && rec.Symbol != "") {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	meta, err := n.onchain.Lookup(lookupCtx, rec.Mint)
	if err != nil {
		observability.RecordEnrichment("onchain", "error", time.Since(start).Seconds())
		n.logger.Printf("onchain metadata lookup failed for %s: %v", rec.Mint, err)
		return
	}
	if meta == nil {
		observability.RecordEnrichment("onchain", "empty", time.Since(start).Seconds())
		return
	}
	observability.RecordEnrichment("onchain", "ok", time.Since(start).Seconds())

	if rec.Name == "" {
		rec.Name = meta.Name
	}
	if rec.Symbol == "" {
		rec.Symbol = meta.Symbol
	}
	if rec.URI == "" {
		rec.URI = meta.URI
	}
}

// applyPlaceholders fills still-empty name/symbol deterministically
// from the mint so the dashboard never shows a blank row.
func applyPlaceholders(rec *domain.TokenRecord) {
	if rec.Name == "" {
		rec.Name = "Token " + mintPrefix(rec.Mint, 8)
	}
	if rec.Symbol == "" {
		rec.Symbol = strings.ToUpper(mintPrefix(rec.Mint, 4))
	}
}

func mintPrefix(mint string, n int) string {
	if len(mint) < n {
		return mint
	}
	return mint[:n]
}
