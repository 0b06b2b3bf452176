// Package chainrpc adapts a live ethclient.Client into the narrow
// interfaces the identity verifier, the delegation checker, the payment
// engine and the bootstrap onboarder each expect: resolving a namespace
// entry to its token-bound account, reading an ERC-1967 implementation
// slot, reading a note published under an entry, and fetching transaction
// receipts. The chain ingester does not go through this package; it uses
// the ethclient.Client directly as its LogSource. It is the one place in the operator that
// issues raw eth_call/eth_getStorageAt requests against the registry
// contract; everything upstream works against the narrower interfaces so
// it can be exercised with fakes in tests.
package chainrpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
)

// erc1967ImplementationSlot is keccak256("eip1967.proxy.implementation") - 1,
// the standard storage slot a UUPS/transparent proxy stores its
// implementation address in.
var erc1967ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// CallerClient is the subset of ethclient.Client chainrpc depends on.
type CallerClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// Client resolves Hypermap registry state over RPC.
type Client struct {
	rpc      CallerClient
	hypermap common.Address
}

// New builds a Client targeting the given Hypermap registry contract.
func New(rpc CallerClient, hypermap common.Address) *Client {
	return &Client{rpc: rpc, hypermap: hypermap}
}

// Get implements identity.RegistryReader: Hypermap.get(namehash(name)).
func (c *Client) Get(ctx context.Context, name string) (tba, owner common.Address, err error) {
	calldata, err := chaincodec.BuildGetCalldata(chaincodec.Namehash(name))
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.hypermap, Data: calldata}, nil)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("chainrpc: get(%q): %w", name, err)
	}
	tba, owner, _, err = chaincodec.DecodeGetResult(out)
	return tba, owner, err
}

// ImplementationOf implements identity.ImplementationReader by reading the
// ERC-1967 implementation slot directly, rather than calling a view
// function, so it works against any proxy regardless of its ABI.
func (c *Client) ImplementationOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	raw, err := c.rpc.StorageAt(ctx, proxy, erc1967ImplementationSlot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("chainrpc: read implementation slot of %s: %w", proxy, err)
	}
	var addr common.Address
	if len(raw) >= common.AddressLength {
		copy(addr[:], raw[len(raw)-common.AddressLength:])
	}
	return addr, nil
}

// ReadNote implements delegation.NoteReader. Notes are published as
// sub-entries of the publishing TBA's own namespace entry, keyed by
// childHash(entryNamehash, key); since the caller only has the TBA
// address, ReadNote first reverse-resolves the TBA to its entry namehash
// via Hypermap.tbaOf, then reads the note sub-entry's data field.
func (c *Client) ReadNote(ctx context.Context, tba common.Address, key string) (value []byte, found bool, err error) {
	entryHash, err := c.tbaToNamehash(ctx, tba)
	if err != nil {
		return nil, false, err
	}
	noteHash := chaincodec.ChildHash(entryHash, key)
	calldata, err := chaincodec.BuildGetCalldata(noteHash)
	if err != nil {
		return nil, false, err
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.hypermap, Data: calldata}, nil)
	if err != nil {
		return nil, false, fmt.Errorf("chainrpc: read note %q of %s: %w", key, tba, err)
	}
	noteTBA, _, data, err := chaincodec.DecodeGetResult(out)
	if err != nil {
		return nil, false, err
	}
	if noteTBA == (common.Address{}) {
		return nil, false, nil
	}
	return data, true, nil
}

func (c *Client) tbaToNamehash(ctx context.Context, tba common.Address) (common.Hash, error) {
	calldata, err := chaincodec.BuildTbaOfCalldata(tba)
	if err != nil {
		return common.Hash{}, err
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.hypermap, Data: calldata}, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chainrpc: resolve entry for tba %s: %w", tba, err)
	}
	return chaincodec.DecodeTbaOfResult(out)
}
