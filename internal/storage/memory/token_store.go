package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// DefaultCapacity bounds the in-memory token store.
const DefaultCapacity = 1000

// TokenStore is a bounded in-memory implementation of
// storage.TokenStore. When the capacity is exceeded the store sorts by
// timestamp descending and keeps only the newest entries — a full
// sort-and-truncate, not an LRU.
type TokenStore struct {
	mu       sync.RWMutex
	byMint   map[string]*domain.TokenRecord
	capacity int
}

// NewTokenStore creates a bounded in-memory token store. capacity <= 0
// selects DefaultCapacity.
func NewTokenStore(capacity int) *TokenStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TokenStore{
		byMint:   make(map[string]*domain.TokenRecord),
		capacity: capacity,
	}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or overwrites the record for its mint.
func (s *TokenStore) Upsert(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *t
	s.byMint[t.Mint] = &recCopy

	if len(s.byMint) > s.capacity {
		s.evict()
	}
	return nil
}

// evict drops the oldest records until size equals capacity.
// Caller holds the write lock.
func (s *TokenStore) evict() {
	all := make([]*domain.TokenRecord, 0, len(s.byMint))
	for _, rec := range s.byMint {
		all = append(all, rec)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].TimestampMs > all[j].TimestampMs
	})

	for _, rec := range all[s.capacity:] {
		delete(s.byMint, rec.Mint)
	}
}

// Get retrieves a record by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, mint string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *rec
	return &recCopy, nil
}

// GetRecent returns up to limit records, newest-first by timestamp.
func (s *TokenStore) GetRecent(_ context.Context, limit int) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, func(*domain.TokenRecord) bool { return true }), nil
}

// Search matches query case-insensitively against mint, name and
// symbol, newest-first.
func (s *TokenStore) Search(_ context.Context, query string, limit int) ([]*domain.TokenRecord, error) {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(limit, func(rec *domain.TokenRecord) bool {
		return strings.Contains(strings.ToLower(rec.Mint), q) ||
			strings.Contains(strings.ToLower(rec.Name), q) ||
			strings.Contains(strings.ToLower(rec.Symbol), q)
	}), nil
}

// collect gathers matching records sorted newest-first, up to limit.
// Caller holds at least the read lock.
func (s *TokenStore) collect(limit int, match func(*domain.TokenRecord) bool) []*domain.TokenRecord {
	matched := make([]*domain.TokenRecord, 0, len(s.byMint))
	for _, rec := range s.byMint {
		if match(rec) {
			recCopy := *rec
			matched = append(matched, &recCopy)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TimestampMs > matched[j].TimestampMs
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Count returns the number of stored records.
func (s *TokenStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.byMint)), nil
}
