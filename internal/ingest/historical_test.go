package ingest

import (
	"context"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
)

type fakeLogSource struct {
	latest     uint64
	logs       []types.Log
	filterCall int
	sub        *fakeSubscription
}

func (f *fakeLogSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.filterCall++
	return f.logs, nil
}

func (f *fakeLogSource) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.sub = &fakeSubscription{errCh: make(chan error, 1)}
	return f.sub, nil
}

func (f *fakeLogSource) BlockNumber(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

type fakeSubscription struct {
	errCh chan error
}

func (s *fakeSubscription) Unsubscribe() {}
func (s *fakeSubscription) Err() <-chan error {
	return s.errCh
}

func TestCatchupAppliesHistoricalLogsOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	category := chaincodec.Namehash("search.hypergrid")
	provider := chaincodec.ChildHash(category, "weather")
	if err := store.InsertCategory(ctx, category.Hex(), "search"); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	fake := &fakeLogSource{latest: 105, logs: []types.Log{mintLog(t, category, provider, "weather")}}
	ig := New(store, fake, common.Address{}, testCategoryTop, 100, nil)

	if err := ig.Catchup(ctx, 100); err != nil {
		t.Fatalf("catchup: %v", err)
	}
	if fake.filterCall != 1 {
		t.Fatalf("expected a single FilterLogs call for a range under the chunk size, got %d", fake.filterCall)
	}
	if _, err := store.GetProvider(ctx, provider.Hex()); err != nil {
		t.Fatalf("expected provider indexed by catchup: %v", err)
	}
}

func TestSubscribeWiresFakeSubscription(t *testing.T) {
	store := openTestStore(t)
	fake := &fakeLogSource{}
	ig := New(store, fake, common.Address{}, chaincodec.Namehash("search.hypergrid"), 0, nil)

	sub, logCh, err := ig.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if logCh == nil {
		t.Fatalf("expected a non-nil log channel")
	}
	sub.Unsubscribe()
}
