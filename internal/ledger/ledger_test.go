package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
)

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

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

func TestCheckLimitsRejectsOverPerCall(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	limits := Limits{MaxPerCall: decPtr(decimal.NewFromInt(100)), MaxTotal: decPtr(decimal.NewFromInt(1000))}

	err := l.CheckLimits(context.Background(), "client-1", decimal.NewFromInt(150), limits, "2026-07-31")
	le, ok := AsLimitExceeded(err)
	if !ok {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
	if le.Limit != "100" {
		t.Fatalf("expected limit 100, got %s", le.Limit)
	}
}

func TestCheckLimitsRejectsOverTotal(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	limits := Limits{MaxPerCall: decPtr(decimal.NewFromInt(100)), MaxTotal: decPtr(decimal.NewFromInt(150))}

	ctx := context.Background()
	if _, err := l.RollupClient(ctx, "client-1", "100", "2026-07-31"); err != nil {
		t.Fatalf("rollup: %v", err)
	}
	err := l.CheckLimits(ctx, "client-1", decimal.NewFromInt(60), limits, "2026-07-31")
	if _, ok := AsLimitExceeded(err); !ok {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
}

func TestCheckLimitsAllowsWithinBounds(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	limits := Limits{MaxPerCall: decPtr(decimal.NewFromInt(100)), MaxTotal: decPtr(decimal.NewFromInt(1000))}

	err := l.CheckLimits(context.Background(), "client-1", decimal.NewFromInt(50), limits, "2026-07-31")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckLimitsUnsetFieldsAreUnlimited(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	ctx := context.Background()

	if _, err := l.RollupClient(ctx, "client-1", "1000000000", "2026-07-31"); err != nil {
		t.Fatalf("rollup: %v", err)
	}
	err := l.CheckLimits(ctx, "client-1", decimal.NewFromInt(1000000000), Limits{}, "2026-07-31")
	if err != nil {
		t.Fatalf("expected no error for a client with no caps configured, got %v", err)
	}
}

func TestRollupClientResetsOnNewDayBucket(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	ctx := context.Background()

	if _, err := l.RollupClient(ctx, "client-1", "500", "2026-07-30"); err != nil {
		t.Fatalf("rollup day 1: %v", err)
	}
	total, err := l.RollupClient(ctx, "client-1", "20", "2026-07-31")
	if err != nil {
		t.Fatalf("rollup day 2: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected reset total 20, got %s", total.String())
	}
}

func TestRecordTransferClassifiesDirection(t *testing.T) {
	store := openTestStore(t)
	l := New(store)
	tba := common.HexToAddress("0x1111111111111111111111111111111111111111")
	provider := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ctx := context.Background()
	if err := l.RecordTransfer(ctx, tba, tba, provider, "0xabc", 0, 100, "1000000"); err != nil {
		t.Fatalf("record outbound transfer: %v", err)
	}
	if err := l.RecordTransfer(ctx, tba, provider, tba, "0xdef", 1, 101, "2000000"); err != nil {
		t.Fatalf("record inbound transfer: %v", err)
	}
	if err := l.RecordTransfer(ctx, tba, provider, provider, "0xfff", 2, 102, "1"); err == nil {
		t.Fatalf("expected error for a transfer that does not touch the TBA")
	}
}
