package delegation

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type fakeNotes struct {
	values map[string][]byte
}

func (f fakeNotes) ReadNote(ctx context.Context, tba common.Address, key string) ([]byte, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func encodeSigners(t *testing.T, addrs ...common.Address) []byte {
	t.Helper()
	encoded, err := signersArg.Pack(addrs)
	if err != nil {
		t.Fatalf("pack signers: %v", err)
	}
	return encoded
}

func TestCheckVerifiedWhenInBothLists(t *testing.T) {
	hot := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tba := common.HexToAddress("0x2222222222222222222222222222222222222222")
	notes := fakeNotes{values: map[string][]byte{
		accessListNoteKey: hot.Bytes(),
		signersNoteKey:    encodeSigners(t, hot),
	}}
	c := NewChecker(notes)
	res := c.Check(context.Background(), true, tba, hot)
	if res.Status != StatusVerified {
		t.Fatalf("expected Verified, got %s (%s)", res.Status, res.Message)
	}
}

func TestCheckNeedsIdentity(t *testing.T) {
	c := NewChecker(fakeNotes{})
	res := c.Check(context.Background(), false, common.Address{}, common.Address{})
	if res.Status != StatusNeedsIdentity {
		t.Fatalf("expected NeedsIdentity, got %s", res.Status)
	}
}

func TestCheckNeedsHotWallet(t *testing.T) {
	c := NewChecker(fakeNotes{})
	res := c.Check(context.Background(), true, common.HexToAddress("0x01"), common.Address{})
	if res.Status != StatusNeedsHotWallet {
		t.Fatalf("expected NeedsHotWallet, got %s", res.Status)
	}
}

func TestCheckAccessListMissing(t *testing.T) {
	c := NewChecker(fakeNotes{values: map[string][]byte{}})
	res := c.Check(context.Background(), true, common.HexToAddress("0x01"), common.HexToAddress("0x02"))
	if res.Status != StatusAccessListNoteMissing {
		t.Fatalf("expected AccessListNoteMissing, got %s", res.Status)
	}
}

func TestCheckSignersMissing(t *testing.T) {
	hot := common.HexToAddress("0x1111111111111111111111111111111111111111")
	notes := fakeNotes{values: map[string][]byte{accessListNoteKey: hot.Bytes()}}
	c := NewChecker(notes)
	res := c.Check(context.Background(), true, common.HexToAddress("0x02"), hot)
	if res.Status != StatusSignersNoteMissing {
		t.Fatalf("expected SignersNoteMissing, got %s", res.Status)
	}
}

func TestCheckHotWalletNotInList(t *testing.T) {
	hot := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	notes := fakeNotes{values: map[string][]byte{
		accessListNoteKey: other.Bytes(),
		signersNoteKey:    encodeSigners(t, other),
	}}
	c := NewChecker(notes)
	res := c.Check(context.Background(), true, common.HexToAddress("0x02"), hot)
	if res.Status != StatusHotWalletNotInList {
		t.Fatalf("expected HotWalletNotInList, got %s", res.Status)
	}
}

func TestCheckAccessListInvalidData(t *testing.T) {
	notes := fakeNotes{values: map[string][]byte{accessListNoteKey: []byte{0x01, 0x02, 0x03}}}
	c := NewChecker(notes)
	res := c.Check(context.Background(), true, common.HexToAddress("0x02"), common.HexToAddress("0x01"))
	if res.Status != StatusAccessListNoteInvalidData {
		t.Fatalf("expected AccessListNoteInvalidData, got %s", res.Status)
	}
}

func TestCheckSignersInvalidData(t *testing.T) {
	hot := common.HexToAddress("0x1111111111111111111111111111111111111111")
	notes := fakeNotes{values: map[string][]byte{
		accessListNoteKey: hot.Bytes(),
		signersNoteKey:    []byte{0xde, 0xad},
	}}
	c := NewChecker(notes)
	res := c.Check(context.Background(), true, common.HexToAddress("0x02"), hot)
	if res.Status != StatusSignersNoteInvalidData {
		t.Fatalf("expected SignersNoteInvalidData, got %s", res.Status)
	}
}
