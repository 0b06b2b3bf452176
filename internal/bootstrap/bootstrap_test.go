package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
)

var (
	bootstrapMinterTBA  = common.HexToAddress("0x5555555555555555555555555555555555555555")
	bootstrapHotWallet  = common.HexToAddress("0x6666666666666666666666666666666666666666")
	bootstrapMintedTBA  = common.HexToAddress("0x7777777777777777777777777777777777777777")
	bootstrapTestOwner  = common.HexToAddress("0x8888888888888888888888888888888888888888")
	bootstrapTestEnv    = chainenv.Constants{ChainID: 1, HypermapAddress: "0x000000000044c6b8cb4d8f0f889a3e47664eaeda", HypergridAddress: bootstrapMinterTBA.Hex()}
)

type notFoundRegistry struct{}

func (notFoundRegistry) Get(ctx context.Context, name string) (common.Address, common.Address, error) {
	return common.Address{}, common.Address{}, nil
}

type noopImpl struct{}

func (noopImpl) ImplementationOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	return chainenv.ExpectedTBAImplementation, nil
}

type verifiedRegistry struct{}

func (verifiedRegistry) Get(ctx context.Context, name string) (common.Address, common.Address, error) {
	return bootstrapMintedTBA, bootstrapTestOwner, nil
}

type fakeReceipts struct {
	logs []ReceiptLog
}

func (f fakeReceipts) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	return &Receipt{Status: 1, Logs: f.logs}, nil
}

func accountCreatedLog() ReceiptLog {
	data := make([]byte, 96)
	copy(data[12:32], bootstrapMintedTBA.Bytes())
	return ReceiptLog{Topics: []common.Hash{erc6551AccountCreatedTopic0}, Data: data}
}

func TestOnboardSkipsMintWhenAlreadyVerified(t *testing.T) {
	custodyClient := custody.New(unreachableServer(t), "operator@hallman.hypr", nil)
	idChecker := identity.NewChecker(verifiedRegistry{}, noopImpl{}, bootstrapTestEnv)
	ob := New(bootstrapTestEnv, idChecker, custodyClient, nil, bootstrapMinterTBA, "some-node.os", nil)

	result, err := ob.Onboard(context.Background(), "wallet-1", bootstrapHotWallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AlreadyOnboarded {
		t.Fatalf("expected AlreadyOnboarded, got %+v", result)
	}
	if result.TBAAddress != bootstrapMintedTBA {
		t.Fatalf("unexpected tba: %s", result.TBAAddress)
	}
}

func TestOnboardMintsAndExtractsTBA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		switch payload["operation"] {
		case "ExecuteViaTba":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"tx_hash": "0xmint"}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]any{"message": "unexpected operation"}})
		}
	}))
	t.Cleanup(srv.Close)

	custodyClient := custody.New(srv.URL, "operator@hallman.hypr", nil)
	idChecker := identity.NewChecker(notFoundRegistry{}, noopImpl{}, bootstrapTestEnv)
	receipts := fakeReceipts{logs: []ReceiptLog{accountCreatedLog()}}
	ob := New(bootstrapTestEnv, idChecker, custodyClient, receipts, bootstrapMinterTBA, "some-node.os", nil)

	result, err := ob.Onboard(context.Background(), "wallet-1", bootstrapHotWallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadyOnboarded {
		t.Fatalf("expected a real mint, not a skip")
	}
	if result.TBAAddress != bootstrapMintedTBA {
		t.Fatalf("unexpected extracted tba: %s", result.TBAAddress)
	}
	if result.MintTxHash != "0xmint" {
		t.Fatalf("unexpected tx hash: %s", result.MintTxHash)
	}
}

func unreachableServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("custody should not be called when identity is already verified")
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
