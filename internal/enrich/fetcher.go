package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds one off-chain metadata request.
const DefaultFetchTimeout = 5 * time.Second

// maxMetadataBody caps the metadata response size.
const maxMetadataBody = 1 << 20 // 1 MiB

// OffchainMetadata is the JSON document behind a token's uri.
type OffchainMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Discord     string `json:"discord"`
}

// Fetcher retrieves off-chain metadata JSON.
type Fetcher struct {
	client *http.Client
}

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFetchTimeout sets the per-request timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// NewFetcher creates an off-chain metadata fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs the uri and parses it as metadata JSON. One attempt, no
// retries; the caller treats any error as "leave fields empty".
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*OffchainMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		return nil, fmt.Errorf("read metadata body: %w", err)
	}

	var meta OffchainMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	return &meta, nil
}
