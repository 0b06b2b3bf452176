// Package chainenv holds the constant values that differ between the
// production and staging deployments of Hypergrid. These are the only
// values that change between environments; everything else reads them
// through For() rather than hard-coding a value.
package chainenv

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Name identifies a deployment environment.
type Name string

const (
	Production Name = "production"
	Staging    Name = "staging"
)

// Constants bundles the environment-specific addresses and labels used
// throughout the indexer, identity verifier and payment engine.
type Constants struct {
	Env Name

	// Namespace is the root label under which the operator's own entry and
	// every hot-wallet sub-entry are minted.
	Namespace string
	// WalletPrefix is prepended to a node name to form the expected
	// sub-entry name resolved by the identity verifier.
	WalletPrefix string
	// HyprSuffix is appended to namehash labels in human-readable form.
	HyprSuffix string
	// Publisher is the namespace entry that owns the Hypergrid provider
	// registry facts.
	Publisher string

	// HypermapAddress is the Hypermap registry contract.
	HypermapAddress string
	// HypergridAddress is the top-level Hypergrid namespace entry.
	HypergridAddress string
	// NamespaceMinterAddress mints sub-entries under Namespace.
	NamespaceMinterAddress string
	// HyprHash is the namehash of the root "hypr" TLD.
	HyprHash string

	// USDCAddress is the USDC ERC-20 token used for all pricing/payment.
	USDCAddress string
	// CirclePaymasterAddress is the ERC-4337 paymaster sponsoring gasless
	// USDC transfers on the production chain.
	CirclePaymasterAddress string

	// ChainID is the EVM chain this deployment talks to.
	ChainID int64
}

// production holds the live Base-mainnet deployment constants.
var production = Constants{
	Env:                    Production,
	Namespace:              "grid",
	WalletPrefix:           "grid-wallet.",
	HyprSuffix:             ".grid.hypr",
	Publisher:              "ware.hypr",
	HypermapAddress:        "0x000000000044C6B8Cb4d8f0F889a3E47664EAeda",
	HypergridAddress:       "0xd65cb2ae7212e9b767c6953bb11cad1876d81cc8",
	NamespaceMinterAddress: "0x44a8Bd4f9370b248c91d54773Ac4a457B3454b50",
	HyprHash:               "0x29575a1a0473dcc0e00d7137198ed715215de7bffd92911627d5e008410a5826",
	USDCAddress:            "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
	CirclePaymasterAddress: "0x0578cFB241215b77442a541325d6A4E6dFE700Ec",
	ChainID:                8453,
}

// staging holds the pre-production deployment constants. The Hypergrid
// namespace entry address and hypr-root hash are placeholders pending a
// staging deployment.
var staging = Constants{
	Env:                    Staging,
	Namespace:              "obfusc-grid123",
	WalletPrefix:           "grid-wallet.",
	HyprSuffix:             ".obfusc-grid123.hypr",
	Publisher:              "test.hypr",
	HypermapAddress:        "0x000000000044C6B8Cb4d8f0F889a3E47664EAeda",
	HypergridAddress:       "0x2138da52cbf52adf2e73139a898370e03bbebf0a",
	NamespaceMinterAddress: "0x44a8Bd4f9370b248c91d54773Ac4a457B3454b50",
	HyprHash:               "0x29575a1a0473dcc0e00d7137198ed715215de7bffd92911627d5e008410a5826",
	USDCAddress:            "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	CirclePaymasterAddress: "0x0578cFB241215b77442a541325d6A4E6dFE700Ec",
	ChainID:                84532,
}

// For resolves the named environment's constants.
func For(name Name) (Constants, error) {
	switch name {
	case Production:
		return production, nil
	case Staging:
		return staging, nil
	default:
		return Constants{}, fmt.Errorf("chainenv: unknown environment %q", name)
	}
}

// USDC returns the environment's USDC token address, parsed.
func (c Constants) USDC() (common.Address, error) {
	return parseAddress(c.USDCAddress)
}

// Hypermap returns the Hypermap registry contract address, parsed.
func (c Constants) Hypermap() (common.Address, error) {
	return parseAddress(c.HypermapAddress)
}

// Paymaster returns the Circle USDC paymaster address, parsed.
func (c Constants) Paymaster() (common.Address, error) {
	return parseAddress(c.CirclePaymasterAddress)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("chainenv: %q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

// EntryPointAddress is the canonical ERC-4337 v0.7 EntryPoint contract,
// identical across chains.
var EntryPointAddress = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

// MulticallAddress is the canonical Multicall3 deployment used for
// batched note initialization via DELEGATECALL.
var MulticallAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// ExpectedTBAImplementation is the ERC-6551 account implementation every
// Hypergrid TBA must run; anything else fails identity verification.
var ExpectedTBAImplementation = common.HexToAddress("0x0000000000046886061414588bb9F63b6C53D8674")
