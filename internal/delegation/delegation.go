// Package delegation checks whether a hot wallet has been granted
// authority to act on behalf of the operator's token-bound account, by
// reading the two notes the account owner publishes on-chain:
// "~access-list" (a flat concatenation of 20-byte addresses) and
// "~signers" (an ABI-encoded address[]).
package delegation

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Status is one of the ten delegation-check outcomes.
type Status int

const (
	StatusVerified Status = iota
	StatusNeedsIdentity
	StatusNeedsHotWallet
	StatusAccessListNoteMissing
	StatusSignersNoteMissing
	StatusHotWalletNotInList
	StatusAccessListNoteInvalidData
	StatusSignersNoteLookupError
	StatusSignersNoteInvalidData
	StatusCheckError
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "Verified"
	case StatusNeedsIdentity:
		return "NeedsIdentity"
	case StatusNeedsHotWallet:
		return "NeedsHotWallet"
	case StatusAccessListNoteMissing:
		return "AccessListNoteMissing"
	case StatusSignersNoteMissing:
		return "SignersNoteMissing"
	case StatusHotWalletNotInList:
		return "HotWalletNotInList"
	case StatusAccessListNoteInvalidData:
		return "AccessListNoteInvalidData"
	case StatusSignersNoteLookupError:
		return "SignersNoteLookupError"
	case StatusSignersNoteInvalidData:
		return "SignersNoteInvalidData"
	case StatusCheckError:
		return "CheckError"
	default:
		return "Unknown"
	}
}

// Result is the full classification of a delegation check for one hot wallet.
type Result struct {
	Status  Status
	Message string
}

const (
	accessListNoteKey = "~access-list"
	signersNoteKey    = "~signers"
)

// NoteReader reads a single note value, by key, off the entry owned by the
// given token-bound account, and reports whether it exists.
type NoteReader interface {
	ReadNote(ctx context.Context, tba common.Address, key string) (value []byte, found bool, err error)
}

// Checker verifies whether a hot wallet is delegated to act for the
// operator's TBA.
type Checker struct {
	notes NoteReader
}

// NewChecker builds a Checker backed by the given note reader.
func NewChecker(notes NoteReader) *Checker {
	return &Checker{notes: notes}
}

var signersArg = abi.Arguments{{Type: mustAddressSliceType()}}

func mustAddressSliceType() abi.Type {
	t, err := abi.NewType("address[]", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Check verifies that hotWallet appears in both the access-list and
// signers notes published on the operator TBA. identityVerified and
// hotWallet being the zero address short-circuit to NeedsIdentity /
// NeedsHotWallet respectively, since there is nothing to check without
// them.
func (c *Checker) Check(ctx context.Context, identityVerified bool, tba, hotWallet common.Address) Result {
	if !identityVerified {
		return Result{Status: StatusNeedsIdentity}
	}
	if hotWallet == (common.Address{}) {
		return Result{Status: StatusNeedsHotWallet}
	}

	accessList, found, err := c.notes.ReadNote(ctx, tba, accessListNoteKey)
	if err != nil {
		return Result{Status: StatusCheckError, Message: fmt.Sprintf("access-list read: %s", err)}
	}
	if !found {
		return Result{Status: StatusAccessListNoteMissing}
	}
	inAccessList, err := containsAddress(accessList, hotWallet)
	if err != nil {
		return Result{Status: StatusAccessListNoteInvalidData, Message: err.Error()}
	}

	signersRaw, found, err := c.notes.ReadNote(ctx, tba, signersNoteKey)
	if err != nil {
		return Result{Status: StatusSignersNoteLookupError, Message: fmt.Sprintf("signers read: %s", err)}
	}
	if !found {
		return Result{Status: StatusSignersNoteMissing}
	}
	signers, err := decodeSigners(signersRaw)
	if err != nil {
		return Result{Status: StatusSignersNoteInvalidData, Message: err.Error()}
	}
	inSigners := addressInSlice(signers, hotWallet)

	if inAccessList && inSigners {
		return Result{Status: StatusVerified}
	}
	return Result{Status: StatusHotWalletNotInList}
}

// containsAddress interprets data as a flat concatenation of 20-byte
// addresses and reports whether target is among them.
func containsAddress(data []byte, target common.Address) (bool, error) {
	if len(data)%common.AddressLength != 0 {
		return false, fmt.Errorf("delegation: access-list length %d not a multiple of %d", len(data), common.AddressLength)
	}
	for i := 0; i+common.AddressLength <= len(data); i += common.AddressLength {
		var a common.Address
		copy(a[:], data[i:i+common.AddressLength])
		if a == target {
			return true, nil
		}
	}
	return false, nil
}

func decodeSigners(data []byte) ([]common.Address, error) {
	values, err := signersArg.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("delegation: unpack signers: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("delegation: unexpected signers value count %d", len(values))
	}
	signers, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("delegation: signers note did not decode to address[]")
	}
	return signers, nil
}

func addressInSlice(addrs []common.Address, target common.Address) bool {
	for _, a := range addrs {
		if a == target {
			return true
		}
	}
	return false
}
