package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	rec := &domain.TokenRecord{
		Mint:         "Mint1",
		Name:         "Foo",
		Symbol:       "FOO",
		MarketCapSol: 30.5,
		Pool:         "pump",
		TimestampMs:  1000,
	}

	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "Mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Foo" {
		t.Errorf("Name mismatch: got %s, want Foo", got.Name)
	}
	if got.MarketCapSol != 30.5 {
		t.Errorf("MarketCapSol mismatch: got %f", got.MarketCapSol)
	}
}

func TestTokenStore_UpsertOverwrites(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.TokenRecord{Mint: "Mint1", Name: "Old", TimestampMs: 1000}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, &domain.TokenRecord{Mint: "Mint1", Name: "New", TimestampMs: 2000}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "Mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "New" {
		t.Errorf("expected last write to win, got %s", got.Name)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 record after overwrite, got %d", count)
	}
}

func TestTokenStore_UpsertIdempotent(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	rec := &domain.TokenRecord{Mint: "Mint1", Name: "Foo", TimestampMs: 1000}

	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 record, got %d", count)
	}
}

func TestTokenStore_InvalidInput(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	if err := store.Upsert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Upsert(ctx, &domain.TokenRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty mint, got %v", err)
	}
}

func TestTokenStore_NotFound(t *testing.T) {
	store := NewTokenStore(10)

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_EvictionKeepsNewest(t *testing.T) {
	store := NewTokenStore(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		rec := &domain.TokenRecord{
			Mint:        fmt.Sprintf("Mint%d", i),
			TimestampMs: int64(i * 1000),
		}
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}

	count, _ := store.Count(ctx)
	if count != 3 {
		t.Fatalf("expected capacity 3, got %d", count)
	}

	// Oldest two evicted
	for _, mint := range []string{"Mint1", "Mint2"} {
		if _, err := store.Get(ctx, mint); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected %s evicted, got %v", mint, err)
		}
	}
	// Newest three kept
	for _, mint := range []string{"Mint3", "Mint4", "Mint5"} {
		if _, err := store.Get(ctx, mint); err != nil {
			t.Errorf("expected %s kept, got %v", mint, err)
		}
	}
}

func TestTokenStore_GetRecentOrderAndLimit(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		store.Upsert(ctx, &domain.TokenRecord{
			Mint:        fmt.Sprintf("Mint%d", i),
			TimestampMs: int64(i * 1000),
		})
	}

	recent, err := store.GetRecent(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}

	want := []string{"Mint4", "Mint3", "Mint2"}
	for i, rec := range recent {
		if rec.Mint != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], rec.Mint)
		}
	}
}

func TestTokenStore_SearchCaseInsensitive(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	store.Upsert(ctx, &domain.TokenRecord{Mint: "AbcMint", Name: "Foo Token", Symbol: "FOO", TimestampMs: 1000})
	store.Upsert(ctx, &domain.TokenRecord{Mint: "XyzMint", Name: "Bar Token", Symbol: "BAR", TimestampMs: 2000})

	bySymbol, err := store.Search(ctx, "foo", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(bySymbol) != 1 || bySymbol[0].Mint != "AbcMint" {
		t.Errorf("symbol search mismatch: %+v", bySymbol)
	}

	byMint, err := store.Search(ctx, "XYZ", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(byMint) != 1 || byMint[0].Mint != "XyzMint" {
		t.Errorf("mint search mismatch: %+v", byMint)
	}

	byName, err := store.Search(ctx, "token", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("expected 2 name matches, got %d", len(byName))
	}
	// Newest first
	if len(byName) == 2 && byName[0].Mint != "XyzMint" {
		t.Errorf("expected newest first, got %s", byName[0].Mint)
	}

	none, err := store.Search(ctx, "missing", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %d", len(none))
	}
}

func TestTokenStore_ReturnsCopy(t *testing.T) {
	store := NewTokenStore(10)
	ctx := context.Background()

	rec := &domain.TokenRecord{Mint: "Mint1", Name: "Original", TimestampMs: 1000}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Mutating the input must not change the stored record
	rec.Name = "Mutated"

	got, _ := store.Get(ctx, "Mint1")
	if got.Name != "Original" {
		t.Error("store should keep a copy, not the caller's pointer")
	}

	// Mutating a returned record must not change the stored one
	got.Name = "AlsoMutated"
	again, _ := store.Get(ctx, "Mint1")
	if again.Name != "Original" {
		t.Error("store should return a copy, not a shared pointer")
	}
}
