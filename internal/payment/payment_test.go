package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/delegation"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
	"github.com/hyperware-ai/hypergrid-operator/internal/ledger"
)

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

var testTBA = common.HexToAddress("0x1111111111111111111111111111111111111111")
var testOwner = common.HexToAddress("0x2222222222222222222222222222222222222222")
var testHotWallet = common.HexToAddress("0x3333333333333333333333333333333333333333")
var testProviderWallet = common.HexToAddress("0x4444444444444444444444444444444444444444")

type fakeRegistry struct{}

func (fakeRegistry) Get(ctx context.Context, name string) (common.Address, common.Address, error) {
	return testTBA, testOwner, nil
}

type fakeImpl struct{}

func (fakeImpl) ImplementationOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	return chainenv.ExpectedTBAImplementation, nil
}

type fakeNotes struct{}

func (fakeNotes) ReadNote(ctx context.Context, tba common.Address, key string) ([]byte, bool, error) {
	switch key {
	case "~access-list":
		return testHotWallet.Bytes(), true, nil
	case "~signers":
		addrSliceT, _ := abi.NewType("address[]", "", nil)
		packed, _ := abi.Arguments{{Type: addrSliceT}}.Pack([]common.Address{testHotWallet})
		return packed, true, nil
	default:
		return nil, false, nil
	}
}

func newTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := chainstore.Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T, custodyHandler http.HandlerFunc) *Engine {
	t.Helper()
	store := newTestStore(t)
	env := chainenv.Constants{ChainID: 1, USDCAddress: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"}

	idChecker := identity.NewChecker(fakeRegistry{}, fakeImpl{}, env)
	delChecker := delegation.NewChecker(fakeNotes{})
	ledg := ledger.New(store)

	srv := httptest.NewServer(custodyHandler)
	t.Cleanup(srv.Close)
	custodyClient := custody.New(srv.URL, "operator@hallman.hypr", nil)

	return New(env, idChecker, delChecker, ledg, custodyClient, store, nil, testTBA, "some-node.os", nil)
}

func TestAttemptConfirmsDirectPayment(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req["operation"] {
		case "ExecuteViaTba":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"tx_hash": "0xdeadbeef"}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]any{"message": "unexpected operation"}})
		}
	})

	limits := ledger.Limits{MaxPerCall: decPtr(decimal.NewFromInt(100000)), MaxTotal: decPtr(decimal.NewFromInt(1000000))}
	result := engine.Attempt(context.Background(), limits, "2026-07-31", Request{
		ProviderWallet: testProviderWallet,
		ProviderID:     "provider-1",
		ClientID:       "client-1",
		AmountUnits:    "5000",
		HotWalletID:    "wallet-1",
		HotWalletAddr:  testHotWallet,
	})

	if result.Status != StatusConfirmed {
		t.Fatalf("expected StatusConfirmed, got %s (%s)", result.Status, result.Message)
	}
	if result.TxHash != "0xdeadbeef" {
		t.Fatalf("unexpected tx hash: %s", result.TxHash)
	}
}

func TestAttemptRejectsOverLimit(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("custody service should not be called when limits reject the payment")
	})

	limits := ledger.Limits{MaxPerCall: decPtr(decimal.NewFromInt(100)), MaxTotal: decPtr(decimal.NewFromInt(1000))}
	result := engine.Attempt(context.Background(), limits, "2026-07-31", Request{
		ProviderWallet: testProviderWallet,
		ProviderID:     "provider-1",
		ClientID:       "client-1",
		AmountUnits:    "500",
		HotWalletID:    "wallet-1",
		HotWalletAddr:  testHotWallet,
	})

	if result.Status != StatusLimitExceeded {
		t.Fatalf("expected StatusLimitExceeded, got %s", result.Status)
	}
}

func TestAttemptSkipsUndelegatedHotWallet(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("custody service should not be called for an undelegated hot wallet")
	})

	limits := ledger.Limits{MaxPerCall: decPtr(decimal.NewFromInt(100000)), MaxTotal: decPtr(decimal.NewFromInt(1000000))}
	otherWallet := common.HexToAddress("0x9999999999999999999999999999999999999999")
	result := engine.Attempt(context.Background(), limits, "2026-07-31", Request{
		ProviderWallet: testProviderWallet,
		ProviderID:     "provider-1",
		ClientID:       "client-1",
		AmountUnits:    "500",
		HotWalletID:    "wallet-2",
		HotWalletAddr:  otherWallet,
	})

	if result.Status != StatusSkippedNotDelegated {
		t.Fatalf("expected StatusSkippedNotDelegated, got %s", result.Status)
	}
}

func TestAttemptBuildFailedWhenCustodyRejects(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]any{"message": "signature rejected"}})
	})

	limits := ledger.Limits{MaxPerCall: decPtr(decimal.NewFromInt(100000)), MaxTotal: decPtr(decimal.NewFromInt(1000000))}
	result := engine.Attempt(context.Background(), limits, "2026-07-31", Request{
		ProviderWallet: testProviderWallet,
		ProviderID:     "provider-1",
		ClientID:       "client-1",
		AmountUnits:    "500",
		HotWalletID:    "wallet-1",
		HotWalletAddr:  testHotWallet,
	})

	if result.Status != StatusBuildFailed {
		t.Fatalf("expected StatusBuildFailed, got %s (%s)", result.Status, result.Message)
	}
}
