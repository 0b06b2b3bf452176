package chaincodec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventKind tags a decoded Hypermap log as one of the three registry event
// types the ingester understands, or Unknown for anything else on the
// contract.
type EventKind int

const (
	Unknown EventKind = iota
	MintEvent
	NoteEvent
	FactEvent
)

func (k EventKind) String() string {
	switch k {
	case MintEvent:
		return "Mint"
	case NoteEvent:
		return "Note"
	case FactEvent:
		return "Fact"
	default:
		return "Unknown"
	}
}

// Event signatures, matching the Hypermap registry contract: each carries
// the parent namehash and child/note/fact namehash as indexed topics, with
// the human-readable label and value/data as ABI-encoded log data.
var (
	mintSig = []byte("Mint(bytes32,bytes32,bytes,bytes)")
	noteSig = []byte("Note(bytes32,bytes32,bytes,bytes,bytes)")
	factSig = []byte("Fact(bytes32,bytes32,bytes,bytes,bytes)")

	MintTopic0 = crypto.Keccak256Hash(mintSig)
	NoteTopic0 = crypto.Keccak256Hash(noteSig)
	FactTopic0 = crypto.Keccak256Hash(factSig)

	bytesBytesArgs = abi.Arguments{
		{Type: mustType("bytes")},
		{Type: mustType("bytes")},
	}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// KindOf classifies a log by its topic-0; unrecognised topics return Unknown
// and are logged and skipped by the ingester rather than causing an error.
func KindOf(log types.Log) EventKind {
	if len(log.Topics) == 0 {
		return Unknown
	}
	switch log.Topics[0] {
	case MintTopic0:
		return MintEvent
	case NoteTopic0:
		return NoteEvent
	case FactTopic0:
		return FactEvent
	default:
		return Unknown
	}
}

// MintLog is the decoded form of a Hypermap Mint event.
type MintLog struct {
	ParentHash common.Hash
	ChildHash  common.Hash
	Label      string
	LabelHash  []byte
}

// NoteLog is the decoded form of a Hypermap Note or Fact event; both share
// the same wire shape and only differ by topic-0.
type NoteLog struct {
	ParentHash common.Hash
	NoteHash   common.Hash
	Key        string
	Value      []byte
}

// DecodeMint unpacks a Mint log. Topics: [sig, parentHash, childHash].
// Data: abi-encoded (bytes label, bytes labelhash).
func DecodeMint(log types.Log) (MintLog, error) {
	if len(log.Topics) < 3 {
		return MintLog{}, fmt.Errorf("chaincodec: mint log has %d topics, want 3", len(log.Topics))
	}
	values, err := bytesBytesArgs.Unpack(log.Data)
	if err != nil {
		return MintLog{}, fmt.Errorf("chaincodec: unpack mint data: %w", err)
	}
	label, ok := values[0].([]byte)
	if !ok {
		return MintLog{}, fmt.Errorf("chaincodec: mint label field has unexpected type")
	}
	labelHash, ok := values[1].([]byte)
	if !ok {
		return MintLog{}, fmt.Errorf("chaincodec: mint labelhash field has unexpected type")
	}
	return MintLog{
		ParentHash: log.Topics[1],
		ChildHash:  log.Topics[2],
		Label:      string(label),
		LabelHash:  labelHash,
	}, nil
}

// DecodeNote unpacks a Note or Fact log. Topics: [sig, parentHash, noteHash].
// Data: abi-encoded (bytes key, bytes labelhash, bytes value); we only need
// key and value for the registry store.
func DecodeNote(log types.Log) (NoteLog, error) {
	if len(log.Topics) < 3 {
		return NoteLog{}, fmt.Errorf("chaincodec: note log has %d topics, want 3", len(log.Topics))
	}
	args := abi.Arguments{
		{Type: mustType("bytes")},
		{Type: mustType("bytes")},
		{Type: mustType("bytes")},
	}
	values, err := args.Unpack(log.Data)
	if err != nil {
		return NoteLog{}, fmt.Errorf("chaincodec: unpack note data: %w", err)
	}
	key, ok := values[0].([]byte)
	if !ok {
		return NoteLog{}, fmt.Errorf("chaincodec: note key field has unexpected type")
	}
	value, ok := values[2].([]byte)
	if !ok {
		return NoteLog{}, fmt.Errorf("chaincodec: note value field has unexpected type")
	}
	return NoteLog{
		ParentHash: log.Topics[1],
		NoteHash:   log.Topics[2],
		Key:        string(key),
		Value:      value,
	}, nil
}
