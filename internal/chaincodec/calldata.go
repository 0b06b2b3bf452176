package chaincodec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func funcSelector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

// CallOperation mirrors the TBA execute() operation byte: CALL performs a
// normal external call, DELEGATECALL runs the target's code in the TBA's
// own storage context (used to batch note-setting via Multicall).
type CallOperation uint8

const (
	OpCall         CallOperation = 0
	OpDelegateCall CallOperation = 1
)

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytesT, _   = abi.NewType("bytes", "", nil)
	uint8T, _   = abi.NewType("uint8", "", nil)

	mintArgs = abi.Arguments{
		{Type: addressT}, // who
		{Type: bytesT},   // label
		{Type: bytesT},   // initialization
		{Type: bytesT},   // erc721Data
		{Type: addressT}, // implementation
	}
	noteArgs = abi.Arguments{
		{Type: bytesT}, // noteKey
		{Type: bytesT}, // noteValue
	}
	executeArgs = abi.Arguments{
		{Type: addressT}, // to
		{Type: uint256T}, // value
		{Type: bytesT},   // data
		{Type: uint8T},   // operation
	}
)

// mintSelector, noteSelector and executeSelector are the first four bytes
// of keccak256(signature), matching solidity's function selector scheme.
var (
	mintSelector    = funcSelector("mint(address,bytes,bytes,bytes,address)")
	noteSelector    = funcSelector("note(bytes,bytes)")
	executeSelector = funcSelector("execute(address,uint256,bytes,uint8)")
)

// MintCall is the decoded argument set for Hypermap.mint(...).
type MintCall struct {
	Owner          common.Address
	Label          string
	Initialization []byte
	ERC721Data     []byte
	Implementation common.Address
}

// BuildMintCalldata encodes a call to Hypermap's
// mint(address who, bytes label, bytes initialization, bytes erc721Data, address implementation).
func BuildMintCalldata(c MintCall) ([]byte, error) {
	packed, err := mintArgs.Pack(c.Owner, []byte(c.Label), c.Initialization, c.ERC721Data, c.Implementation)
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack mint call: %w", err)
	}
	return append(append([]byte{}, mintSelector...), packed...), nil
}

// DecodeMintCalldata is the inverse of BuildMintCalldata; the testable
// round-trip property requires BuildMintCalldata(DecodeMintCalldata(x)) == x
// for any valid encoded call.
func DecodeMintCalldata(data []byte) (MintCall, error) {
	if len(data) < 4 {
		return MintCall{}, fmt.Errorf("chaincodec: mint calldata too short")
	}
	values, err := mintArgs.Unpack(data[4:])
	if err != nil {
		return MintCall{}, fmt.Errorf("chaincodec: unpack mint call: %w", err)
	}
	owner, _ := values[0].(common.Address)
	label, _ := values[1].([]byte)
	init, _ := values[2].([]byte)
	erc721, _ := values[3].([]byte)
	impl, _ := values[4].(common.Address)
	return MintCall{
		Owner:          owner,
		Label:          string(label),
		Initialization: init,
		ERC721Data:     erc721,
		Implementation: impl,
	}, nil
}

// BuildNoteCalldata encodes a call to Hypermap's note(bytes key, bytes value).
func BuildNoteCalldata(key, value string) ([]byte, error) {
	packed, err := noteArgs.Pack([]byte(key), []byte(value))
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack note call: %w", err)
	}
	return append(append([]byte{}, noteSelector...), packed...), nil
}

var (
	erc20TransferArgs     = abi.Arguments{{Type: addressT}, {Type: uint256T}}
	erc20TransferSelector = funcSelector("transfer(address,uint256)")
)

// BuildERC20TransferCalldata encodes a standard ERC-20 transfer(to, amount)
// call, used as the inner call the operator TBA executes to pay a provider.
func BuildERC20TransferCalldata(to common.Address, amount *big.Int) ([]byte, error) {
	packed, err := erc20TransferArgs.Pack(to, amount)
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack erc20 transfer call: %w", err)
	}
	return append(append([]byte{}, erc20TransferSelector...), packed...), nil
}

var (
	bytes32T, _ = abi.NewType("bytes32", "", nil)

	getArgs    = abi.Arguments{{Type: bytes32T}}
	getSelector = funcSelector("get(bytes32)")

	getResult = abi.Arguments{
		{Type: addressT}, // tba
		{Type: addressT}, // owner
		{Type: bytesT},   // data
	}

	tbaOfArgs     = abi.Arguments{{Type: addressT}}
	tbaOfSelector = funcSelector("tbaOf(address)")
	tbaOfResult   = abi.Arguments{{Type: bytes32T}}
)

// BuildGetCalldata encodes a call to Hypermap.get(bytes32 namehash), which
// resolves an entry to its token-bound account, owner, and note/fact data.
func BuildGetCalldata(namehash common.Hash) ([]byte, error) {
	packed, err := getArgs.Pack(namehash)
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack get call: %w", err)
	}
	return append(append([]byte{}, getSelector...), packed...), nil
}

// DecodeGetResult unpacks the (address tba, address owner, bytes data)
// tuple returned by Hypermap.get.
func DecodeGetResult(out []byte) (tba, owner common.Address, data []byte, err error) {
	vals, err := getResult.Unpack(out)
	if err != nil {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("chaincodec: unpack get result: %w", err)
	}
	if len(vals) != 3 {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("chaincodec: unexpected get result arity %d", len(vals))
	}
	return vals[0].(common.Address), vals[1].(common.Address), vals[2].([]byte), nil
}

// BuildTbaOfCalldata encodes a call to Hypermap.tbaOf(address account),
// the reverse lookup from a token-bound account back to its entry namehash
// (used to resolve the note sub-entries published under an arbitrary TBA).
func BuildTbaOfCalldata(account common.Address) ([]byte, error) {
	packed, err := tbaOfArgs.Pack(account)
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack tbaOf call: %w", err)
	}
	return append(append([]byte{}, tbaOfSelector...), packed...), nil
}

// DecodeTbaOfResult unpacks the bytes32 namehash returned by Hypermap.tbaOf.
func DecodeTbaOfResult(out []byte) (common.Hash, error) {
	vals, err := tbaOfResult.Unpack(out)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chaincodec: unpack tbaOf result: %w", err)
	}
	if len(vals) != 1 {
		return common.Hash{}, fmt.Errorf("chaincodec: unexpected tbaOf result arity %d", len(vals))
	}
	return common.Hash(vals[0].([32]byte)), nil
}

// BuildExecuteCalldata encodes a TBA.execute(to, value, data, operation) call.
func BuildExecuteCalldata(to common.Address, value *big.Int, data []byte, op CallOperation) ([]byte, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	packed, err := executeArgs.Pack(to, value, data, uint8(op))
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack execute call: %w", err)
	}
	return append(append([]byte{}, executeSelector...), packed...), nil
}

// MulticallEntry is one call within an aggregate() batch.
type MulticallEntry struct {
	Target   common.Address
	CallData []byte
}

var aggregateCallTupleT, _ = abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
	{Name: "target", Type: "address"},
	{Name: "callData", Type: "bytes"},
})

var aggregateArgs = abi.Arguments{{Type: aggregateCallTupleT}}
var aggregateSelector = funcSelector("aggregate((address,bytes)[])")

type aggregateTuple struct {
	Target   common.Address
	CallData []byte
}

// BuildAggregateCalldata encodes a Multicall3 aggregate(Call[]) call used to
// batch multiple notes into the single DELEGATECALL a mint's
// initialization payload issues.
func BuildAggregateCalldata(calls []MulticallEntry) ([]byte, error) {
	tuples := make([]aggregateTuple, len(calls))
	for i, c := range calls {
		tuples[i] = aggregateTuple{Target: c.Target, CallData: c.CallData}
	}
	packed, err := aggregateArgs.Pack(tuples)
	if err != nil {
		return nil, fmt.Errorf("chaincodec: pack aggregate call: %w", err)
	}
	return append(append([]byte{}, aggregateSelector...), packed...), nil
}
