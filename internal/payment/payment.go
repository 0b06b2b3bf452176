// Package payment is the TBA payment engine: given a provider wallet,
// price and the hot wallet nominated to sign, it runs identity and
// delegation pre-checks, enforces spending limits, selects between a
// gasless ERC-4337 path and a direct TBA execute(), submits the transfer
// through the custody service and waits for the settling Transfer log.
package payment

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/delegation"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
	"github.com/hyperware-ai/hypergrid-operator/internal/ledger"
)

// Status is the terminal or in-flight state of one payment attempt.
type Status int

const (
	StatusPending Status = iota
	StatusBuildFailed
	StatusSubmitted
	StatusConfirmed
	StatusReverted
	StatusTimedOut
	StatusSkippedNoIdentity
	StatusSkippedNotDelegated
	StatusLimitExceeded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusBuildFailed:
		return "build_failed"
	case StatusSubmitted:
		return "submitted"
	case StatusConfirmed:
		return "confirmed"
	case StatusReverted:
		return "reverted"
	case StatusTimedOut:
		return "timed_out"
	case StatusSkippedNoIdentity:
		return "skipped_no_identity"
	case StatusSkippedNotDelegated:
		return "skipped_not_delegated"
	case StatusLimitExceeded:
		return "limit_exceeded"
	default:
		return "unknown"
	}
}

// Path distinguishes the gasless UserOperation route from the directly
// broadcast one.
type Path int

const (
	PathDirect Path = iota
	PathGaslessUserOp
)

func (p Path) String() string {
	if p == PathGaslessUserOp {
		return "gasless_userop"
	}
	return "direct"
}

// Result is the outcome of one attempted payment.
type Result struct {
	Status       Status
	Path         Path
	TxHash       string
	Limit        string
	Message      string
	CallLedgerID int64
}

// Request is the input to Attempt.
type Request struct {
	ProviderWallet common.Address
	ProviderID     string
	ClientID       string
	AmountUnits    string // USDC smallest-unit decimal string
	HotWalletID    string
	HotWalletAddr  common.Address
}

// ReceiptFetcher is the subset of ethclient used to confirm a directly
// broadcast transaction's receipt and log contents.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// Receipt is the subset of a transaction receipt the payment engine checks:
// whether it reverted and whether it emitted the expected Transfer log.
type Receipt struct {
	Status uint64
	Logs   []ReceiptLog
}

// ReceiptLog is one log entry on a Receipt.
type ReceiptLog struct {
	Address  common.Address
	Topics   []common.Hash
	Data     []byte
	LogIndex uint
}

const receiptWaitTimeout = 60 * time.Second
const receiptPollInterval = 2 * time.Second

// Engine wires identity, delegation and limit checks to a custody-service
// backed payment dispatch.
type Engine struct {
	env          chainenv.Constants
	identity     *identity.Checker
	delegation   *delegation.Checker
	ledger       *ledger.Ledger
	custody      *custody.Client
	store        *chainstore.Store
	receipts     ReceiptFetcher
	operatorTBA  common.Address
	operatorName string
	logger       *logrus.Logger

	gaslessAvailable func(ctx context.Context) bool
}

// New builds a payment Engine.
func New(
	env chainenv.Constants,
	identityChecker *identity.Checker,
	delegationChecker *delegation.Checker,
	ledg *ledger.Ledger,
	custodyClient *custody.Client,
	store *chainstore.Store,
	receipts ReceiptFetcher,
	operatorTBA common.Address,
	operatorName string,
	logger *logrus.Logger,
) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		env:          env,
		identity:     identityChecker,
		delegation:   delegationChecker,
		ledger:       ledg,
		custody:      custodyClient,
		store:        store,
		receipts:     receipts,
		operatorTBA:  operatorTBA,
		operatorName: operatorName,
		logger:       logger,
		gaslessAvailable: func(context.Context) bool { return true },
	}
}

// Attempt runs the full pre-check → path selection → dispatch → receipt
// wait → ledger record sequence for one payment request.
func (e *Engine) Attempt(ctx context.Context, limits ledger.Limits, dayBucket string, req Request) Result {
	idResult := e.identity.Check(ctx, e.env, e.operatorName)
	if idResult.Status != identity.StatusVerified {
		return Result{Status: StatusSkippedNoIdentity, Message: "identity not verified: " + idResult.Message}
	}

	delResult := e.delegation.Check(ctx, true, e.operatorTBA, req.HotWalletAddr)
	if delResult.Status != delegation.StatusVerified {
		return Result{Status: StatusSkippedNotDelegated, Message: "hot wallet not delegated: " + delResult.Message}
	}

	amount, err := decimal.NewFromString(req.AmountUnits)
	if err != nil {
		return Result{Status: StatusBuildFailed, Message: fmt.Sprintf("invalid amount: %v", err)}
	}
	if err := e.ledger.CheckLimits(ctx, req.ClientID, amount, limits, dayBucket); err != nil {
		if le, ok := ledger.AsLimitExceeded(err); ok {
			return Result{Status: StatusLimitExceeded, Limit: le.Limit, Message: err.Error()}
		}
		return Result{Status: StatusBuildFailed, Message: err.Error()}
	}

	callLedgerID, err := e.store.AppendCallLedger(ctx, chainstore.CallLedgerEntry{
		ClientID:    req.ClientID,
		ProviderID:  req.ProviderID,
		AmountUnits: req.AmountUnits,
		TimestampMS: time.Now().UnixMilli(),
		Status:      StatusPending.String(),
	})
	if err != nil {
		return Result{Status: StatusBuildFailed, Message: fmt.Sprintf("append call ledger: %v", err)}
	}

	amountUnits, ok := new(big.Int).SetString(req.AmountUnits, 10)
	if !ok {
		e.markFailed(ctx, callLedgerID, StatusBuildFailed)
		return Result{Status: StatusBuildFailed, Message: "amount is not a base-10 integer", CallLedgerID: callLedgerID}
	}

	path := e.selectPath(ctx, req)
	txHash, submitErr := e.dispatch(ctx, path, req, amountUnits)
	if submitErr != nil {
		e.markFailed(ctx, callLedgerID, StatusBuildFailed)
		return Result{Status: StatusBuildFailed, Path: path, Message: submitErr.Error(), CallLedgerID: callLedgerID}
	}

	if err := e.store.UpdateCallLedgerStatus(ctx, callLedgerID, StatusSubmitted.String(), "", nil); err != nil {
		e.logger.WithError(err).Warn("payment: failed to record submitted status")
	}

	confirmed, revertReason, logIndex, waitErr := e.waitForTransfer(ctx, txHash, req)
	switch {
	case waitErr != nil:
		e.store.UpdateCallLedgerStatus(ctx, callLedgerID, StatusTimedOut.String(), txHash, nil)
		return Result{Status: StatusTimedOut, Path: path, TxHash: txHash, Message: waitErr.Error(), CallLedgerID: callLedgerID}
	case !confirmed:
		e.store.UpdateCallLedgerStatus(ctx, callLedgerID, StatusReverted.String(), txHash, nil)
		return Result{Status: StatusReverted, Path: path, TxHash: txHash, Message: revertReason, CallLedgerID: callLedgerID}
	}

	e.store.UpdateCallLedgerStatus(ctx, callLedgerID, StatusConfirmed.String(), txHash, logIndex)
	if _, err := e.ledger.RollupClient(ctx, req.ClientID, req.AmountUnits, dayBucket); err != nil {
		e.logger.WithError(err).Warn("payment: failed to roll up client total after confirmed payment")
	}
	return Result{Status: StatusConfirmed, Path: path, TxHash: txHash, CallLedgerID: callLedgerID}
}

func (e *Engine) markFailed(ctx context.Context, id int64, status Status) {
	if err := e.store.UpdateCallLedgerStatus(ctx, id, status.String(), "", nil); err != nil {
		e.logger.WithError(err).Warn("payment: failed to record call ledger failure status")
	}
}

// selectPath implements the path-selection rule: gasless only on Base
// mainnet, with a paymaster configured, when the TBA is USDC-rich but
// ETH-poor.
func (e *Engine) selectPath(ctx context.Context, req Request) Path {
	if e.env.ChainID != 8453 {
		return PathDirect
	}
	if e.env.CirclePaymasterAddress == "" || !e.gaslessAvailable(ctx) {
		return PathDirect
	}
	usdc, err := e.custody.GetTokenBalance(ctx, e.operatorTBA.Hex(), e.env.USDCAddress, e.env.ChainID)
	if err != nil {
		return PathDirect
	}
	usdcBalance, ok := new(big.Int).SetString(usdc, 10)
	if !ok {
		return PathDirect
	}
	amount, ok := new(big.Int).SetString(req.AmountUnits, 10)
	if !ok || usdcBalance.Cmp(amount) < 0 {
		return PathDirect
	}
	ethWei, err := e.custody.GetBalance(ctx, e.operatorTBA.Hex(), e.env.ChainID)
	if err != nil {
		return PathDirect
	}
	ethBalance, ok := new(big.Int).SetString(ethWei, 10)
	if !ok {
		return PathDirect
	}
	if ethBalance.Cmp(minGasReserveWei) >= 0 {
		return PathDirect
	}
	return PathGaslessUserOp
}

// minGasReserveWei is the ETH balance under which the TBA is considered
// "insufficient for gas" and routed onto the gasless path.
var minGasReserveWei = big.NewInt(1_000_000_000_000_000) // 0.001 ETH

func (e *Engine) dispatch(ctx context.Context, path Path, req Request, amount *big.Int) (string, error) {
	usdcAddr, err := e.env.USDC()
	if err != nil {
		return "", fmt.Errorf("payment: resolve usdc address: %w", err)
	}
	transferCalldata, err := chaincodec.BuildERC20TransferCalldata(req.ProviderWallet, amount)
	if err != nil {
		return "", fmt.Errorf("payment: build transfer calldata: %w", err)
	}
	executeCalldata, err := chaincodec.BuildExecuteCalldata(usdcAddr, big.NewInt(0), transferCalldata, chaincodec.OpCall)
	if err != nil {
		return "", fmt.Errorf("payment: build execute calldata: %w", err)
	}

	switch path {
	case PathGaslessUserOp:
		return e.dispatchGasless(ctx, req, executeCalldata)
	default:
		return e.dispatchDirect(ctx, req, executeCalldata)
	}
}

func (e *Engine) dispatchDirect(ctx context.Context, req Request, executeCalldata []byte) (string, error) {
	res, err := e.custody.ExecuteViaTba(ctx, req.HotWalletID, e.operatorTBA.Hex(), hexutil.Encode(executeCalldata), e.env.ChainID)
	if err != nil {
		return "", fmt.Errorf("payment: direct execute: %w", err)
	}
	return res.TxHash, nil
}

func (e *Engine) dispatchGasless(ctx context.Context, req Request, executeCalldata []byte) (string, error) {
	signed, err := e.custody.BuildAndSignUserOperationForPayment(ctx, req.HotWalletID, e.operatorTBA.Hex(), hexutil.Encode(executeCalldata), "0", true, e.env.ChainID)
	if err != nil {
		return "", fmt.Errorf("payment: build+sign userop: %w", err)
	}
	signedUserOp, _ := signed["signed_user_operation"].(map[string]any)
	entryPoint, _ := signed["entry_point"].(string)
	if entryPoint == "" {
		entryPoint = chainenv.EntryPointAddress.Hex()
	}
	userOpHash, err := e.custody.SubmitUserOperation(ctx, signedUserOp, entryPoint, e.env.ChainID)
	if err != nil {
		return "", fmt.Errorf("payment: submit userop: %w", err)
	}
	return e.waitForUserOpReceipt(ctx, userOpHash)
}

// waitForUserOpReceipt polls the bundler until it reports a transaction
// hash or the receipt wait timeout elapses.
func (e *Engine) waitForUserOpReceipt(ctx context.Context, userOpHash string) (string, error) {
	deadline := time.Now().Add(receiptWaitTimeout)
	for time.Now().Before(deadline) {
		receipt, err := e.custody.GetUserOperationReceipt(ctx, userOpHash, e.env.ChainID)
		if err == nil && receipt.TxHash != "" {
			return receipt.TxHash, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
	return "", fmt.Errorf("payment: userop %s did not settle within %s", userOpHash, receiptWaitTimeout)
}

// waitForTransfer polls for the transaction receipt and checks for the
// expected Transfer(operatorTBA, providerWallet, amount) log. On a confirmed
// match, logIndex points at that log's index within the receipt.
func (e *Engine) waitForTransfer(ctx context.Context, txHash string, req Request) (confirmed bool, revertReason string, logIndex *uint, err error) {
	if e.receipts == nil {
		return true, "", nil, nil
	}
	deadline := time.Now().Add(receiptWaitTimeout)
	hash := common.HexToHash(txHash)
	for time.Now().Before(deadline) {
		receipt, recErr := e.receipts.TransactionReceipt(ctx, hash)
		if recErr == nil && receipt != nil {
			if receipt.Status == 0 {
				return false, "transaction reverted", nil, nil
			}
			if matched, idx := hasExpectedTransferLog(receipt, e.env, e.operatorTBA, req.ProviderWallet, req.AmountUnits); matched {
				return true, "", &idx, nil
			}
			return false, "missing transfer log", nil, nil
		}
		select {
		case <-ctx.Done():
			return false, "", nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
	return false, "", nil, fmt.Errorf("payment: receipt for %s not available within %s", txHash, receiptWaitTimeout)
}
