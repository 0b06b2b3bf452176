// Package chaincodec decodes Hypermap registry log events and builds the
// calldata the payment and onboarding paths submit back to the chain,
// dispatching on each log's topic-0 to pick the right decoder for its
// tagged variant (mint/note/fact).
package chaincodec

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Namehash computes the deterministic namehash of a dotted hierarchical
// name, recursing from the root the same way ENS/Hypermap derive child
// hashes from their parent: hash = keccak256(parentHash || keccak256(label)).
func Namehash(name string) common.Hash {
	if name == "" {
		return common.Hash{}
	}
	labels := strings.Split(name, ".")
	hash := common.Hash{}
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		hash = crypto.Keccak256Hash(hash[:], labelHash[:])
	}
	return hash
}

// ChildHash derives the namehash of label appended under parent.
func ChildHash(parent common.Hash, label string) common.Hash {
	labelHash := crypto.Keccak256Hash([]byte(label))
	return crypto.Keccak256Hash(parent[:], labelHash[:])
}
