package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
)

func openTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := chainstore.Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAbiType(t *testing.T, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	if err != nil {
		t.Fatalf("abi.NewType(%s): %v", name, err)
	}
	return typ
}

func mintLog(t *testing.T, parent, child common.Hash, label string) types.Log {
	t.Helper()
	args := abi.Arguments{{Type: mustAbiType(t, "bytes")}, {Type: mustAbiType(t, "bytes")}}
	data, err := args.Pack([]byte(label), []byte{0x00})
	if err != nil {
		t.Fatalf("pack mint data: %v", err)
	}
	return types.Log{Topics: []common.Hash{chaincodec.MintTopic0, parent, child}, Data: data}
}

func noteLog(t *testing.T, parent, note common.Hash, key, value string) types.Log {
	t.Helper()
	args := abi.Arguments{{Type: mustAbiType(t, "bytes")}, {Type: mustAbiType(t, "bytes")}, {Type: mustAbiType(t, "bytes")}}
	data, err := args.Pack([]byte(key), []byte{0x00}, []byte(value))
	if err != nil {
		t.Fatalf("pack note data: %v", err)
	}
	return types.Log{Topics: []common.Hash{chaincodec.NoteTopic0, parent, note}, Data: data}
}

var testCategoryTop = chaincodec.Namehash("ware.hypr")

func newTestIngester(t *testing.T, store *chainstore.Store) *Ingester {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(store, nil, common.HexToAddress("0x000000000044C6B8Cb4d8f0F889a3E47664EAeda"), testCategoryTop, 100, logger)
}

func TestApplyLogWritesMintAndNoteInOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	category := chaincodec.ChildHash(testCategoryTop, "search")
	provider := chaincodec.ChildHash(category, "weather")

	ig := newTestIngester(t, store)
	if err := ig.ApplyLog(ctx, mintLog(t, testCategoryTop, category, "search")); err != nil {
		t.Fatalf("apply category mint log: %v", err)
	}
	if err := ig.ApplyLog(ctx, mintLog(t, category, provider, "weather")); err != nil {
		t.Fatalf("apply mint log: %v", err)
	}
	noteHash := chaincodec.ChildHash(provider, "~price")
	if err := ig.ApplyLog(ctx, noteLog(t, provider, noteHash, "~price", "1000000")); err != nil {
		t.Fatalf("apply note log: %v", err)
	}

	p, err := store.GetProvider(ctx, provider.Hex())
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if p.Price != "1000000" {
		t.Fatalf("expected price 1000000, got %s", p.Price)
	}
	if ig.PendingCount() != 0 {
		t.Fatalf("expected no pending logs, got %d", ig.PendingCount())
	}
}

func TestApplyLogDefersNoteUntilProviderArrivesThenDrains(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	category := chaincodec.ChildHash(testCategoryTop, "search")
	provider := chaincodec.ChildHash(category, "weather")

	ig := newTestIngester(t, store)
	if err := ig.ApplyLog(ctx, mintLog(t, testCategoryTop, category, "search")); err != nil {
		t.Fatalf("apply category mint log: %v", err)
	}
	noteHash := chaincodec.ChildHash(provider, "~price")

	// Note arrives before its provider's mint log: must defer, not error.
	if err := ig.ApplyLog(ctx, noteLog(t, provider, noteHash, "~price", "1000000")); err != nil {
		t.Fatalf("apply out-of-order note log: %v", err)
	}
	if ig.PendingCount() != 1 {
		t.Fatalf("expected 1 pending log, got %d", ig.PendingCount())
	}
	if _, err := store.GetProvider(ctx, provider.Hex()); err == nil {
		t.Fatalf("expected provider to not exist yet")
	}

	// Mint arrives, unblocking the deferred note.
	if err := ig.ApplyLog(ctx, mintLog(t, category, provider, "weather")); err != nil {
		t.Fatalf("apply mint log: %v", err)
	}
	if ig.PendingCount() != 0 {
		t.Fatalf("expected pending queue drained, got %d", ig.PendingCount())
	}
	p, err := store.GetProvider(ctx, provider.Hex())
	if err != nil {
		t.Fatalf("get provider after drain: %v", err)
	}
	if p.Price != "1000000" {
		t.Fatalf("expected deferred note applied, price=%q", p.Price)
	}
}

func TestApplyLogDefersProviderMintUntilCategoryMintArrivesThenDrains(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	category := chaincodec.ChildHash(testCategoryTop, "search")
	provider := chaincodec.ChildHash(category, "weather")
	ig := newTestIngester(t, store)

	// Provider mint arrives before its category has ever been minted: must
	// defer rather than erroring, since a fresh deployment has no categories
	// recorded yet.
	if err := ig.ApplyLog(ctx, mintLog(t, category, provider, "weather")); err != nil {
		t.Fatalf("apply out-of-order provider mint: %v", err)
	}
	if ig.PendingCount() != 1 {
		t.Fatalf("expected 1 pending log, got %d", ig.PendingCount())
	}
	if _, err := store.GetProvider(ctx, provider.Hex()); err == nil {
		t.Fatalf("expected provider to not exist yet")
	}

	// Category mint arrives, rooted directly under the publisher entry;
	// this must create the category and unblock the deferred provider.
	if err := ig.ApplyLog(ctx, mintLog(t, testCategoryTop, category, "search")); err != nil {
		t.Fatalf("apply category mint log: %v", err)
	}
	if ig.PendingCount() != 0 {
		t.Fatalf("expected pending queue drained, got %d", ig.PendingCount())
	}
	if _, err := store.GetProvider(ctx, provider.Hex()); err != nil {
		t.Fatalf("get provider after category arrives: %v", err)
	}
}

func TestApplyLogIgnoresUnrecognizedNoteKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	category := chaincodec.ChildHash(testCategoryTop, "search")
	provider := chaincodec.ChildHash(category, "weather")
	ig := newTestIngester(t, store)
	if err := ig.ApplyLog(ctx, mintLog(t, testCategoryTop, category, "search")); err != nil {
		t.Fatalf("apply category mint log: %v", err)
	}
	if err := ig.ApplyLog(ctx, mintLog(t, category, provider, "weather")); err != nil {
		t.Fatalf("apply mint log: %v", err)
	}

	noteHash := chaincodec.ChildHash(provider, "~unrelated-metadata")
	if err := ig.ApplyLog(ctx, noteLog(t, provider, noteHash, "~unrelated-metadata", "ignored")); err != nil {
		t.Fatalf("apply log with unrecognized note key should not error: %v", err)
	}
	if ig.PendingCount() != 0 {
		t.Fatalf("an unrecognized note key must not be deferred, got pending=%d", ig.PendingCount())
	}
}

func TestCheckpointFloorsAtFirstBlockAndRespectsReorgDepth(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ig := New(store, nil, common.Address{}, common.Hash{}, 100, nil)

	// processed never advanced past firstBlock: checkpoint floors at firstBlock.
	if err := ig.Checkpoint(ctx); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	block, found, err := store.Checkpoint(ctx)
	if err != nil || !found {
		t.Fatalf("checkpoint read: found=%v err=%v", found, err)
	}
	if block != 100 {
		t.Fatalf("expected checkpoint floored at firstBlock 100, got %d", block)
	}

	ig.processed = 1000
	if err := ig.Checkpoint(ctx); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	block, _, err = store.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("checkpoint read: %v", err)
	}
	if block != 1000-defaultReorgDepth {
		t.Fatalf("expected checkpoint at processed-reorgDepth=%d, got %d", 1000-defaultReorgDepth, block)
	}
}
