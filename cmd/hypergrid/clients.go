package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/authgate"
	"github.com/hyperware-ai/hypergrid-operator/internal/ledger"
)

var (
	clientsOnce    sync.Once
	clientsPath    string
	clientsInitErr error
)

func clientsInit(cmd *cobra.Command, _ []string) error {
	clientsOnce.Do(func() {
		cfg, _, _, err := loadRuntimeConfig()
		if err != nil {
			clientsInitErr = err
			return
		}
		clientsPath = clientsPathFor(cfg.Store.Path)
	})
	return clientsInitErr
}

// clientsPathFor derives the on-disk client directory path from the
// chainstore db path, keeping both files alongside each other.
func clientsPathFor(storePath string) string {
	return filepath.Join(filepath.Dir(storePath), "clients.json")
}

// loadClientDirectory reads the on-disk client list into a fresh
// authgate.Registry. A missing file is treated as an empty directory.
func loadClientDirectory(path string) (*authgate.Registry, error) {
	dir := authgate.NewRegistry()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return dir, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read client directory: %w", err)
	}
	var clients []authgate.AuthorizedClient
	if err := json.Unmarshal(raw, &clients); err != nil {
		return nil, fmt.Errorf("parse client directory: %w", err)
	}
	for _, c := range clients {
		dir.Put(c)
	}
	return dir, nil
}

func saveClientDirectory(path string, dir *authgate.Registry) error {
	raw, err := json.MarshalIndent(dir.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode client directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create client directory path: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// parseOptionalLimit parses a --max-per-call/--max-total flag value into a
// nullable cap: an empty string leaves the client unlimited on that axis,
// matching the wallet's None-is-unlimited spending_limits convention.
func parseOptionalLimit(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func clientsAddHandler(cmd *cobra.Command, args []string) error {
	clientID, hotWallet := args[0], args[1]
	maxPerCall, _ := cmd.Flags().GetString("max-per-call")
	maxTotal, _ := cmd.Flags().GetString("max-total")

	perCall, err := parseOptionalLimit(maxPerCall)
	if err != nil {
		return fmt.Errorf("invalid --max-per-call: %w", err)
	}
	total, err := parseOptionalLimit(maxTotal)
	if err != nil {
		return fmt.Errorf("invalid --max-total: %w", err)
	}

	dir, err := loadClientDirectory(clientsPath)
	if err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	dir.Put(authgate.AuthorizedClient{
		ClientID:                clientID,
		Name:                    clientID,
		AssociatedHotWalletAddr: hotWallet,
		TokenHash:               authgate.HashToken(token),
		Capabilities:            authgate.CapabilitiesAll,
		Limits:                  ledger.Limits{MaxPerCall: perCall, MaxTotal: total},
	})
	if err := saveClientDirectory(clientsPath, dir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "client %s authorized; bearer token (store this securely, it is never persisted): %s\n", clientID, token)
	return nil
}

func clientsListHandler(cmd *cobra.Command, _ []string) error {
	dir, err := loadClientDirectory(clientsPath)
	if err != nil {
		return err
	}
	for _, c := range dir.List() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\twallet=%s\tmax_per_call=%s\tmax_total=%s\n", c.ClientID, c.AssociatedHotWalletAddr, formatLimit(c.Limits.MaxPerCall), formatLimit(c.Limits.MaxTotal))
	}
	return nil
}

func formatLimit(v *decimal.Decimal) string {
	if v == nil {
		return "unlimited"
	}
	return v.String()
}

func clientsRemoveHandler(cmd *cobra.Command, args []string) error {
	dir, err := loadClientDirectory(clientsPath)
	if err != nil {
		return err
	}
	dir.Remove(args[0])
	return saveClientDirectory(clientsPath, dir)
}

var clientsRootCmd = &cobra.Command{Use: "clients", Short: "Manage authorized shim clients", PersistentPreRunE: clientsInit}
var clientsAddCmd = &cobra.Command{Use: "add [client-id] [hot-wallet-address]", Short: "Authorize a new shim client", Args: cobra.ExactArgs(2), RunE: clientsAddHandler}
var clientsListCmd = &cobra.Command{Use: "list", Short: "List authorized shim clients", RunE: clientsListHandler}
var clientsRemoveCmd = &cobra.Command{Use: "remove [client-id]", Short: "Revoke a shim client", Args: cobra.ExactArgs(1), RunE: clientsRemoveHandler}

func init() {
	clientsAddCmd.Flags().String("max-per-call", "", "maximum USDC units per call (unset means unlimited)")
	clientsAddCmd.Flags().String("max-total", "", "maximum cumulative USDC units per day (unset means unlimited)")
	clientsRootCmd.AddCommand(clientsAddCmd, clientsListCmd, clientsRemoveCmd)
}

// RegisterClients mounts the clients command tree on root.
func RegisterClients(root *cobra.Command) { root.AddCommand(clientsRootCmd) }
