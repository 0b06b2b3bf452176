// Package bootstrap runs the one-time sequence that brings a freshly
// installed operator from "no on-chain identity" to "ready to pay": mint
// the operator's own namespace sub-entry via the Hypergrid parent TBA, seed
// its initial ~access-list/~signers notes for the hot wallet that will sign
// payments, and wait for the mint to confirm before reporting the new TBA
// address. It is idempotent: if the identity check already reports
// Verified, Onboard is a no-op that just reports the existing entry.
package bootstrap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
)

// ReceiptFetcher is the subset of ethclient used to wait for the mint
// transaction to confirm and to pull the newly created TBA address out of
// its ERC6551AccountCreated log.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// Receipt mirrors payment.Receipt's shape for the logs Onboard inspects.
type Receipt struct {
	Status uint64
	Logs   []ReceiptLog
}

// ReceiptLog is one log entry on a Receipt.
type ReceiptLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

const (
	mintWaitTimeout  = 60 * time.Second
	mintPollInterval = 2 * time.Second
)

// Result describes the outcome of Onboard.
type Result struct {
	AlreadyOnboarded bool
	EntryName        string
	TBAAddress       common.Address
	OwnerAddress     common.Address
	MintTxHash       string
}

// Onboarder runs the bootstrap sequence.
type Onboarder struct {
	env       chainenv.Constants
	identity  *identity.Checker
	custody   *custody.Client
	receipts  ReceiptFetcher
	logger    *logrus.Logger
	nodeName  string
	minterTBA common.Address
}

// New builds an Onboarder. minterTBA is the Hypergrid parent TBA that mints
// operator sub-entries (chainenv.Constants.HypergridAddress). logger
// defaults to the standard logrus logger.
func New(env chainenv.Constants, identityChecker *identity.Checker, custodyClient *custody.Client, receipts ReceiptFetcher, minterTBA common.Address, nodeName string, logger *logrus.Logger) *Onboarder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Onboarder{
		env:       env,
		identity:  identityChecker,
		custody:   custodyClient,
		receipts:  receipts,
		logger:    logger,
		nodeName:  nodeName,
		minterTBA: minterTBA,
	}
}

// Onboard mints the operator's namespace sub-entry if it doesn't already
// exist, seeding the ~access-list and ~signers notes for hotWalletID's
// address in the same mint transaction, then waits for confirmation.
func (o *Onboarder) Onboard(ctx context.Context, hotWalletID string, hotWalletAddr common.Address) (Result, error) {
	existing := o.identity.Check(ctx, o.env, o.nodeName)
	if existing.Status == identity.StatusVerified {
		o.logger.WithField("entry", existing.EntryName).Info("bootstrap: operator identity already verified, skipping mint")
		return Result{
			AlreadyOnboarded: true,
			EntryName:        existing.EntryName,
			TBAAddress:       existing.TBAAddress,
			OwnerAddress:     existing.OwnerAddress,
		}, nil
	}

	entryName := identity.ExpectedSubEntry(o.env, o.nodeName)
	hypermapAddr, err := o.env.Hypermap()
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: resolve hypermap address: %w", err)
	}

	initData, err := buildAccessNotesMulticall(hypermapAddr, hotWalletAddr)
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: build access-list initialization: %w", err)
	}

	mintCalldata, err := chaincodec.BuildMintCalldata(chaincodec.MintCall{
		Owner:          hotWalletAddr,
		Label:          entryName,
		Initialization: initData,
		Implementation: chainenv.ExpectedTBAImplementation,
	})
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: build mint calldata: %w", err)
	}

	executeCalldata, err := chaincodec.BuildExecuteCalldata(hypermapAddr, big.NewInt(0), mintCalldata, chaincodec.OpCall)
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: build execute calldata: %w", err)
	}

	o.logger.WithField("entry", entryName).Info("bootstrap: minting operator namespace entry")
	tx, err := o.custody.ExecuteViaTba(ctx, hotWalletID, o.minterTBA.Hex(), hexutil.Encode(executeCalldata), o.env.ChainID)
	if err != nil {
		return Result{}, fmt.Errorf("bootstrap: mint transaction rejected: %w", err)
	}

	if o.receipts == nil {
		return Result{EntryName: entryName, MintTxHash: tx.TxHash}, nil
	}

	tba, err := o.waitForTBA(ctx, tx.TxHash)
	if err != nil {
		return Result{EntryName: entryName, MintTxHash: tx.TxHash}, err
	}

	return Result{
		EntryName:    entryName,
		TBAAddress:   tba,
		OwnerAddress: hotWalletAddr,
		MintTxHash:   tx.TxHash,
	}, nil
}

func (o *Onboarder) waitForTBA(ctx context.Context, txHash string) (common.Address, error) {
	deadline := time.Now().Add(mintWaitTimeout)
	for {
		receipt, err := o.receipts.TransactionReceipt(ctx, common.HexToHash(txHash))
		if err == nil && receipt != nil {
			if receipt.Status == 0 {
				return common.Address{}, fmt.Errorf("bootstrap: mint transaction %s reverted", txHash)
			}
			if tba, ok := tbaFromAccountCreatedLogs(receipt.Logs); ok {
				return tba, nil
			}
			return common.Address{}, fmt.Errorf("bootstrap: mint transaction %s confirmed but no ERC6551AccountCreated log found", txHash)
		}
		if time.Now().After(deadline) {
			return common.Address{}, fmt.Errorf("bootstrap: timed out waiting for mint receipt %s", txHash)
		}
		select {
		case <-ctx.Done():
			return common.Address{}, ctx.Err()
		case <-time.After(mintPollInterval):
		}
	}
}
