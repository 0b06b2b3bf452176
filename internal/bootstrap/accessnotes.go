package bootstrap

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
)

const (
	accessListNoteKey = "~access-list"
	signersNoteKey    = "~signers"
)

// erc6551AccountCreatedTopic0 is the ERC6551AccountCreated event signature;
// its data field packs the created account address in its first 32 bytes
// (right-aligned, 12 bytes of padding then the 20-byte address).
var erc6551AccountCreatedTopic0 = crypto.Keccak256Hash([]byte("ERC6551AccountCreated(address,address,bytes32,uint256,uint256,address)"))

var addressSliceT = mustType("address[]")

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// buildAccessNotesMulticall builds the TBA.execute(Multicall, aggregate([
// note(~access-list, hotWallet), note(~signers, abi.encode([hotWallet]))
// ]), 0, DELEGATECALL) initialization payload a freshly minted entry runs
// against itself, seeding delegation notes instead of provider notes.
func buildAccessNotesMulticall(hypermapAddr, hotWallet common.Address) ([]byte, error) {
	signersPacked, err := abi.Arguments{{Type: addressSliceT}}.Pack([]common.Address{hotWallet})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: pack signers note: %w", err)
	}

	accessListCall, err := chaincodec.BuildNoteCalldata(accessListNoteKey, string(hotWallet.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build access-list note: %w", err)
	}
	signersCall, err := chaincodec.BuildNoteCalldata(signersNoteKey, string(signersPacked))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build signers note: %w", err)
	}

	aggregate, err := chaincodec.BuildAggregateCalldata([]chaincodec.MulticallEntry{
		{Target: hypermapAddr, CallData: accessListCall},
		{Target: hypermapAddr, CallData: signersCall},
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build aggregate call: %w", err)
	}

	return chaincodec.BuildExecuteCalldata(chainenv.MulticallAddress, nil, aggregate, chaincodec.OpDelegateCall)
}

func tbaFromAccountCreatedLogs(logs []ReceiptLog) (common.Address, bool) {
	for _, l := range logs {
		if len(l.Topics) == 0 || l.Topics[0] != erc6551AccountCreatedTopic0 {
			continue
		}
		if len(l.Data) < 32 {
			continue
		}
		var addr common.Address
		copy(addr[:], l.Data[12:32])
		return addr, true
	}
	return common.Address{}, false
}
