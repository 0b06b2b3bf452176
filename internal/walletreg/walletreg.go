// Package walletreg is the managed wallet registry: it holds the set
// of hot wallets the operator can sign with, plus a single selected
// wallet pointer, which the wallets CLI sets and reports.
//
// Key derivation uses BIP-39 entropy/mnemonic and the BIP-39 seed
// (PBKDF2 with HMAC-SHA512); the secp256k1 private key is the first 32
// bytes of that seed, with no BIP-32/BIP-44 path derivation, and the
// address is the keccak256-based EVM address, since EVM token-bound
// accounts only accept secp256k1 signers.
package walletreg

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"
)

var (
	// ErrUnknownWallet is returned by Select/Delete/Get for an unrecognized id.
	ErrUnknownWallet = errors.New("walletreg: unknown wallet id")
	// ErrDeleteSelected is returned by Delete when id is the selected wallet.
	ErrDeleteSelected = errors.New("walletreg: cannot delete the selected wallet")
	// ErrLocked is returned by PrivateKey for an Encrypted wallet, or for a
	// Plaintext wallet with no key attached.
	ErrLocked = errors.New("walletreg: wallet is locked")
)

// Storage distinguishes how a wallet's key material is held.
type Storage int

const (
	// Plaintext wallets keep their private key in this process's memory.
	Plaintext Storage = iota
	// Encrypted wallets hold no key material here; only their address is
	// known. This package has no unlock operation and forwards nothing to
	// the custody service for them.
	Encrypted
)

func (s Storage) String() string {
	if s == Encrypted {
		return "encrypted"
	}
	return "plaintext"
}

// ManagedWallet is one entry in the registry.
type ManagedWallet struct {
	ID      string
	Name    string
	Address common.Address
	Storage Storage

	// key is populated only for Plaintext wallets. It is nil for Encrypted
	// wallets and for Plaintext wallets before key material is attached.
	key *ecdsa.PrivateKey
}

// PrivateKey returns the wallet's signing key. It fails with ErrLocked for
// Encrypted wallets, since their key material never enters this process.
func (m *ManagedWallet) PrivateKey() (*ecdsa.PrivateKey, error) {
	if m.Storage == Encrypted || m.key == nil {
		return nil, ErrLocked
	}
	return m.key, nil
}

// Registry holds every managed wallet and the currently selected one.
type Registry struct {
	wallets  map[string]*ManagedWallet
	selected string
	nextID   int
}

// New returns an empty wallet registry.
func New() *Registry {
	return &Registry{wallets: make(map[string]*ManagedWallet)}
}

func (r *Registry) allocID() string {
	r.nextID++
	return fmt.Sprintf("wallet-%d", r.nextID)
}

// GenerateWallet creates a fresh wallet from entropyBits (128 or 256) of
// randomness, returning the wallet and its recovery mnemonic. The caller
// is responsible for displaying the mnemonic exactly once and then
// discarding it.
func (r *Registry) GenerateWallet(name string, entropyBits int) (*ManagedWallet, string, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return nil, "", fmt.Errorf("walletreg: unsupported entropy size %d", entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, "", fmt.Errorf("walletreg: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("walletreg: mnemonic: %w", err)
	}
	w, err := r.importMnemonic(name, mnemonic, "")
	if err != nil {
		return nil, "", err
	}
	return w, mnemonic, nil
}

// ImportMnemonic imports an existing BIP-39 phrase as a plaintext wallet.
func (r *Registry) ImportMnemonic(name, mnemonic, passphrase string) (*ManagedWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("walletreg: invalid mnemonic checksum")
	}
	return r.importMnemonic(name, mnemonic, passphrase)
}

func (r *Registry) importMnemonic(name, mnemonic, passphrase string) (*ManagedWallet, error) {
	seed := bip39.NewSeed(mnemonic, passphrase)
	key, err := crypto.ToECDSA(seed[:32])
	if err != nil {
		return nil, fmt.Errorf("walletreg: derive key from seed: %w", err)
	}
	return r.add(name, key, Plaintext)
}

// ImportPrivateKey imports a raw secp256k1 private key (hex, no 0x prefix
// required) as a plaintext wallet.
func (r *Registry) ImportPrivateKey(name, hexKey string) (*ManagedWallet, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("walletreg: invalid private key: %w", err)
	}
	return r.add(name, key, Plaintext)
}

// RegisterEncrypted adds a wallet whose key material lives in the custody
// service; only its public address is known here.
func (r *Registry) RegisterEncrypted(name string, addr common.Address) *ManagedWallet {
	w := &ManagedWallet{ID: r.allocID(), Name: name, Address: addr, Storage: Encrypted}
	r.wallets[w.ID] = w
	return w
}

func (r *Registry) add(name string, key *ecdsa.PrivateKey, storage Storage) (*ManagedWallet, error) {
	w := &ManagedWallet{
		ID:      r.allocID(),
		Name:    name,
		Address: crypto.PubkeyToAddress(key.PublicKey),
		Storage: storage,
		key:     key,
	}
	r.wallets[w.ID] = w
	return w, nil
}

// Get returns the wallet with the given id.
func (r *Registry) Get(id string) (*ManagedWallet, error) {
	w, ok := r.wallets[id]
	if !ok {
		return nil, ErrUnknownWallet
	}
	return w, nil
}

// GetByAddress finds the managed wallet with the given address.
func (r *Registry) GetByAddress(addr common.Address) (*ManagedWallet, error) {
	for _, w := range r.wallets {
		if w.Address == addr {
			return w, nil
		}
	}
	return nil, ErrUnknownWallet
}

// List returns every managed wallet, in no particular order.
func (r *Registry) List() []*ManagedWallet {
	out := make([]*ManagedWallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		out = append(out, w)
	}
	return out
}

// Select marks id as the active signer wallet. Fails for an unknown id.
func (r *Registry) Select(id string) error {
	if _, ok := r.wallets[id]; !ok {
		return ErrUnknownWallet
	}
	r.selected = id
	return nil
}

// Selected returns the currently selected wallet, if any.
func (r *Registry) Selected() (*ManagedWallet, bool) {
	if r.selected == "" {
		return nil, false
	}
	w, ok := r.wallets[r.selected]
	return w, ok
}

// Delete removes a wallet. Deleting the selected wallet is rejected so the
// registry never holds a dangling selection.
func (r *Registry) Delete(id string) error {
	if _, ok := r.wallets[id]; !ok {
		return ErrUnknownWallet
	}
	if id == r.selected {
		return ErrDeleteSelected
	}
	delete(r.wallets, id)
	return nil
}

// Rename changes a wallet's display name.
func (r *Registry) Rename(id, name string) error {
	w, ok := r.wallets[id]
	if !ok {
		return ErrUnknownWallet
	}
	w.Name = name
	return nil
}
