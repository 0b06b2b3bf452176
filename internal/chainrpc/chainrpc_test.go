package chainrpc

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
)

var (
	testHypermap = common.HexToAddress("0x000000000044c6b8cb4d8f0f889a3e47664eaeda")
	testTBA      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOwner    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testImpl     = common.HexToAddress("0x0000000000046886061414588bb9f63b6c53d8674")
)

var (
	addrT, _   = abi.NewType("address", "", nil)
	bytesT, _  = abi.NewType("bytes", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)

	getResultArgs   = abi.Arguments{{Type: addrT}, {Type: addrT}, {Type: bytesT}}
	tbaOfResultArgs = abi.Arguments{{Type: bytes32T}}
)

func packGetResult(t *testing.T, tba, owner common.Address, data []byte) []byte {
	t.Helper()
	out, err := getResultArgs.Pack(tba, owner, data)
	if err != nil {
		t.Fatalf("pack get result fixture: %v", err)
	}
	return out
}

func packTbaOfResult(t *testing.T, hash common.Hash) []byte {
	t.Helper()
	out, err := tbaOfResultArgs.Pack(hash)
	if err != nil {
		t.Fatalf("pack tbaOf result fixture: %v", err)
	}
	return out
}

type fakeCaller struct {
	call    func(msg ethereum.CallMsg) []byte
	storage []byte
}

func (f fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return f.call(msg), nil
}

func (f fakeCaller) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	return f.storage, nil
}

func TestGetResolvesEntry(t *testing.T) {
	packedOut := packGetResult(t, testTBA, testOwner, nil)
	caller := fakeCaller{call: func(ethereum.CallMsg) []byte { return packedOut }}
	c := New(caller, testHypermap)

	tba, owner, err := c.Get(context.Background(), "grid-wallet.some-node.grid.hypr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tba != testTBA || owner != testOwner {
		t.Fatalf("unexpected result: tba=%s owner=%s", tba, owner)
	}
}

func TestImplementationOfReadsStorageSlot(t *testing.T) {
	padded := make([]byte, 32)
	copy(padded[32-common.AddressLength:], testImpl.Bytes())
	caller := fakeCaller{storage: padded}
	c := New(caller, testHypermap)

	got, err := c.ImplementationOf(context.Background(), testTBA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testImpl {
		t.Fatalf("unexpected implementation: %s", got)
	}
}

func TestReadNoteResolvesViaTbaOfThenGet(t *testing.T) {
	entryHash := chaincodec.Namehash("grid-wallet.some-node.grid.hypr")
	tbaOfOut := packTbaOfResult(t, entryHash)
	getOut := packGetResult(t, testTBA, testOwner, testOwner.Bytes())

	calls := 0
	caller := fakeCaller{call: func(msg ethereum.CallMsg) []byte {
		calls++
		if calls == 1 {
			return tbaOfOut
		}
		return getOut
	}}
	c := New(caller, testHypermap)

	value, found, err := c.ReadNote(context.Background(), testTBA, "~access-list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected note to be found")
	}
	if string(value) != string(testOwner.Bytes()) {
		t.Fatalf("unexpected note value: %x", value)
	}
	if calls != 2 {
		t.Fatalf("expected two chain calls (tbaOf then get), got %d", calls)
	}
}

func TestReadNoteReportsNotFoundWhenEntryMissing(t *testing.T) {
	entryHash := chaincodec.Namehash("grid-wallet.some-node.grid.hypr")
	tbaOfOut := packTbaOfResult(t, entryHash)
	getOut := packGetResult(t, common.Address{}, common.Address{}, nil)

	calls := 0
	caller := fakeCaller{call: func(msg ethereum.CallMsg) []byte {
		calls++
		if calls == 1 {
			return tbaOfOut
		}
		return getOut
	}}
	c := New(caller, testHypermap)

	_, found, err := c.ReadNote(context.Background(), testTBA, "~signers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected note not found")
	}
}
