package chainstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	ctx := context.Background()
	if err := s1.InsertCategory(ctx, "0xcat", "search"); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	s1.Close()

	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	if err := s2.InsertProvider(ctx, "0xcat", "0xprov", "weather.search.hypergrid"); err != nil {
		t.Fatalf("insert provider after reopen: %v", err)
	}
	p, err := s2.GetProvider(ctx, "weather.search.hypergrid")
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if p.Category != "0xcat" {
		t.Fatalf("expected category 0xcat, got %s", p.Category)
	}
}

func TestWipeAllClearsEveryTable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.InsertCategory(ctx, "0xcat", "search"); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	if err := store.InsertProvider(ctx, "0xcat", "0xprov", "weather.search.hypergrid"); err != nil {
		t.Fatalf("insert provider: %v", err)
	}
	if err := store.InsertUSDCEvent(ctx, USDCEvent{TxHash: "0xabc", LogIndex: 0, BlockNumber: 1, Direction: DirectionOut, Counterparty: "0xprov", AmountUnits: "1000000"}); err != nil {
		t.Fatalf("insert usdc event: %v", err)
	}

	if err := store.WipeAll(ctx); err != nil {
		t.Fatalf("wipe all: %v", err)
	}

	providers, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(providers) != 0 {
		t.Fatalf("expected no providers after wipe, got %d", len(providers))
	}
	if _, found, err := store.MaxIndexedBlock(ctx); err != nil || found {
		t.Fatalf("expected no indexed block after wipe, found=%v err=%v", found, err)
	}
}
