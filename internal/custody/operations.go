package custody

import "context"

// WalletInfo describes one wallet the custody service manages.
type WalletInfo struct {
	WalletID string `json:"wallet_id"`
	Address  string `json:"address"`
	Name     string `json:"name"`
}

// CreateWallet asks the custody service to generate a new wallet.
func (c *Client) CreateWallet(ctx context.Context, name string, chainID int64) (WalletInfo, error) {
	var out WalletInfo
	err := c.call(ctx, "CreateWallet", map[string]any{"name": name}, CallOpts{ChainID: chainID}, &out)
	return out, err
}

// ImportWallet registers an externally-generated wallet (by private key or
// mnemonic) with the custody service so it can sign on the operator's behalf.
func (c *Client) ImportWallet(ctx context.Context, name, privateKeyOrMnemonic string, chainID int64) (WalletInfo, error) {
	var out WalletInfo
	err := c.call(ctx, "ImportWallet", map[string]any{
		"name":   name,
		"secret": privateKeyOrMnemonic,
	}, CallOpts{ChainID: chainID}, &out)
	return out, err
}

// ListWallets returns every wallet the custody service holds for this process.
func (c *Client) ListWallets(ctx context.Context) ([]WalletInfo, error) {
	var out struct {
		Wallets []WalletInfo `json:"wallets"`
	}
	err := c.call(ctx, "ListWallets", map[string]any{}, CallOpts{}, &out)
	return out.Wallets, err
}

// GetWalletInfo fetches details for one managed wallet.
func (c *Client) GetWalletInfo(ctx context.Context, walletID string) (WalletInfo, error) {
	var out WalletInfo
	err := c.call(ctx, "GetWalletInfo", map[string]any{}, CallOpts{WalletID: walletID}, &out)
	return out, err
}

// SpendingLimits mirrors the custody service's per-wallet caps.
type SpendingLimits struct {
	PerTxETH  string `json:"per_tx_eth,omitempty"`
	DailyETH  string `json:"daily_eth,omitempty"`
	PerTxUSDC string `json:"per_tx_usdc,omitempty"`
	DailyUSDC string `json:"daily_usdc,omitempty"`
}

// SetWalletLimits updates the spend caps the custody service enforces
// independently of this runtime's own ledger limits.
func (c *Client) SetWalletLimits(ctx context.Context, walletID string, limits SpendingLimits) error {
	return c.call(ctx, "SetWalletLimits", map[string]any{"spending_limits": limits}, CallOpts{WalletID: walletID}, nil)
}

// TxResult is the common shape of a settled on-chain call.
type TxResult struct {
	TxHash string `json:"tx_hash"`
}

// SendEth sends native ETH from a managed wallet.
func (c *Client) SendEth(ctx context.Context, walletID, to, amountWei string, chainID int64) (TxResult, error) {
	var out TxResult
	err := c.call(ctx, "SendEth", map[string]any{
		"to":     to,
		"amount": amountWei,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// SendToken sends an ERC-20 token from a managed wallet.
func (c *Client) SendToken(ctx context.Context, walletID, token, to, amountUnits string, chainID int64) (TxResult, error) {
	var out TxResult
	err := c.call(ctx, "SendToken", map[string]any{
		"token":  token,
		"to":     to,
		"amount": amountUnits,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// ExecuteViaTba signs and broadcasts a fully-encoded TBA.execute(...)
// transaction from the hot wallet that owns the token-bound account, the
// direct (non-gasless) payment path. callDataHex is already the complete
// execute(to, value, data, operation) encoding built by chaincodec.
func (c *Client) ExecuteViaTba(ctx context.Context, walletID, tba, callDataHex string, chainID int64) (TxResult, error) {
	var out TxResult
	err := c.call(ctx, "ExecuteViaTba", map[string]any{
		"tba":       tba,
		"call_data": callDataHex,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// GetBalance returns a wallet's native balance in wei, as a decimal string.
func (c *Client) GetBalance(ctx context.Context, address string, chainID int64) (string, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	err := c.call(ctx, "GetBalance", map[string]any{"address": address}, CallOpts{ChainID: chainID}, &out)
	return out.Balance, err
}

// GetTokenBalance returns a wallet's balance of an ERC-20 token, in the
// token's smallest unit, as a decimal string.
func (c *Client) GetTokenBalance(ctx context.Context, address, token string, chainID int64) (string, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	err := c.call(ctx, "GetTokenBalance", map[string]any{
		"address": address,
		"token":   token,
	}, CallOpts{ChainID: chainID}, &out)
	return out.Balance, err
}

// BuildUserOperationResult is the response of BuildUserOperation. The
// UserOperation itself is kept as an opaque map since its field set is the
// custody service's to define and evolve.
type BuildUserOperationResult struct {
	UserOperation map[string]any `json:"user_operation"`
	EntryPoint    string         `json:"entry_point"`
}

// BuildUserOperation asks the custody service to build an unsigned
// UserOperation calling target with callDataHex, optionally sponsored by a
// configured paymaster.
func (c *Client) BuildUserOperation(ctx context.Context, walletID, target, callDataHex, valueWei string, usePaymaster bool, chainID int64) (BuildUserOperationResult, error) {
	var out BuildUserOperationResult
	err := c.call(ctx, "BuildUserOperation", map[string]any{
		"sender":        walletID,
		"target":        target,
		"call_data":     callDataHex,
		"value":         valueWei,
		"use_paymaster": usePaymaster,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// BuildAndSignUserOperationForPayment combines BuildUserOperation and
// SignUserOperation into a single custody-service round trip, the fast path
// the payment engine prefers for gasless USDC transfers.
func (c *Client) BuildAndSignUserOperationForPayment(ctx context.Context, walletID, target, callDataHex, valueWei string, usePaymaster bool, chainID int64) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, "BuildAndSignUserOperationForPayment", map[string]any{
		"target":        target,
		"call_data":     callDataHex,
		"value":         valueWei,
		"use_paymaster": usePaymaster,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// SignUserOperation signs a previously built UserOperation.
func (c *Client) SignUserOperation(ctx context.Context, walletID string, userOperation map[string]any, entryPoint string, chainID int64) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, "SignUserOperation", map[string]any{
		"user_operation": userOperation,
		"entry_point":    entryPoint,
	}, CallOpts{WalletID: walletID, ChainID: chainID}, &out)
	return out, err
}

// SubmitUserOperation submits a signed UserOperation to a bundler and
// returns its hash.
func (c *Client) SubmitUserOperation(ctx context.Context, signedUserOperation map[string]any, entryPoint string, chainID int64) (string, error) {
	var out struct {
		UserOpHash string `json:"user_op_hash"`
	}
	err := c.call(ctx, "SubmitUserOperation", map[string]any{
		"signed_user_operation": signedUserOperation,
		"entry_point":           entryPoint,
	}, CallOpts{ChainID: chainID}, &out)
	return out.UserOpHash, err
}

// EstimateUserOperationGas returns bundler gas estimates for an unsigned
// UserOperation.
func (c *Client) EstimateUserOperationGas(ctx context.Context, userOperation map[string]any, entryPoint string, chainID int64) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, "EstimateUserOperationGas", map[string]any{
		"user_operation": userOperation,
		"entry_point":    entryPoint,
	}, CallOpts{ChainID: chainID}, &out)
	return out, err
}

// UserOperationReceipt is the bundler's settlement report for a UserOperation.
type UserOperationReceipt struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"transaction_hash"`
	Reason      string `json:"reason,omitempty"`
	BlockNumber uint64 `json:"block_number"`
}

// GetUserOperationReceipt polls the bundler for a UserOperation's outcome.
// A not-yet-mined UserOperation is reported via the custody service
// returning success=false with a "pending"-flavored message; callers loop
// this until the payment engine's own receipt-wait timeout elapses.
func (c *Client) GetUserOperationReceipt(ctx context.Context, userOpHash string, chainID int64) (UserOperationReceipt, error) {
	var out UserOperationReceipt
	err := c.call(ctx, "GetUserOperationReceipt", map[string]any{"user_op_hash": userOpHash}, CallOpts{ChainID: chainID}, &out)
	return out, err
}

// ConfigurePaymaster registers the paymaster address and policy the custody
// service should attach to gasless UserOperations on a given chain.
func (c *Client) ConfigurePaymaster(ctx context.Context, paymaster string, chainID int64) error {
	return c.call(ctx, "ConfigurePaymaster", map[string]any{"paymaster": paymaster}, CallOpts{ChainID: chainID}, nil)
}
