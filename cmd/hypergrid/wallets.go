package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/walletreg"
)

var (
	walletsOnce     sync.Once
	walletsRegistry *walletreg.Registry
	walletsCustody  *custody.Client
	walletsChainID  int64
	walletsInitErr  error
)

func walletsInit(cmd *cobra.Command, _ []string) error {
	walletsOnce.Do(func() {
		cfg, env, logger, err := loadRuntimeConfig()
		if err != nil {
			walletsInitErr = err
			return
		}
		walletsRegistry = walletreg.New()
		walletsCustody = custody.New(cfg.Custody.BaseURL, cfg.Custody.ProcessAddress, logger)
		walletsChainID = env.ChainID
	})
	return walletsInitErr
}

func walletsGenerateHandler(cmd *cobra.Command, args []string) error {
	name := args[0]
	entropyBits := 256
	wallet, mnemonic, err := walletsRegistry.GenerateWallet(name, entropyBits)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wallet %s (%s) address=%s\n", wallet.ID, wallet.Name, wallet.Address)
	fmt.Fprintf(cmd.OutOrStdout(), "mnemonic (store this securely, it is never persisted): %s\n", mnemonic)
	return nil
}

func walletsCreateHandler(cmd *cobra.Command, args []string) error {
	name := args[0]
	info, err := walletsCustody.CreateWallet(context.Background(), name, walletsChainID)
	if err != nil {
		return fmt.Errorf("custody create wallet: %w", err)
	}
	wallet := walletsRegistry.RegisterEncrypted(name, common.HexToAddress(info.Address))
	fmt.Fprintf(cmd.OutOrStdout(), "wallet %s (%s) address=%s [custody-managed]\n", wallet.ID, wallet.Name, wallet.Address)
	return nil
}

func walletsImportHandler(cmd *cobra.Command, args []string) error {
	name, secret := args[0], args[1]
	info, err := walletsCustody.ImportWallet(context.Background(), name, secret, walletsChainID)
	if err != nil {
		return fmt.Errorf("custody import wallet: %w", err)
	}
	wallet := walletsRegistry.RegisterEncrypted(name, common.HexToAddress(info.Address))
	fmt.Fprintf(cmd.OutOrStdout(), "wallet %s (%s) address=%s [custody-managed]\n", wallet.ID, wallet.Name, wallet.Address)
	return nil
}

func walletsListHandler(cmd *cobra.Command, _ []string) error {
	for _, w := range walletsRegistry.List() {
		marker := ""
		if sel, ok := walletsRegistry.Selected(); ok && sel.ID == w.ID {
			marker = " (selected)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s%s\n", w.ID, w.Name, w.Address, w.Storage, marker)
	}
	return nil
}

func walletsSelectHandler(cmd *cobra.Command, args []string) error {
	return walletsRegistry.Select(args[0])
}

func walletsDeleteHandler(cmd *cobra.Command, args []string) error {
	return walletsRegistry.Delete(args[0])
}

func walletsRenameHandler(cmd *cobra.Command, args []string) error {
	return walletsRegistry.Rename(args[0], args[1])
}

var walletsRootCmd = &cobra.Command{Use: "wallets", Short: "Manage hot wallets", PersistentPreRunE: walletsInit}
var walletsGenerateCmd = &cobra.Command{Use: "generate [name]", Short: "Generate a local plaintext wallet", Args: cobra.ExactArgs(1), RunE: walletsGenerateHandler}
var walletsCreateCmd = &cobra.Command{Use: "create [name]", Short: "Create a custody-managed wallet", Args: cobra.ExactArgs(1), RunE: walletsCreateHandler}
var walletsImportCmd = &cobra.Command{Use: "import [name] [private-key-or-mnemonic]", Short: "Import a wallet into custody", Args: cobra.ExactArgs(2), RunE: walletsImportHandler}
var walletsListCmd = &cobra.Command{Use: "list", Short: "List managed wallets", RunE: walletsListHandler}
var walletsSelectCmd = &cobra.Command{Use: "select [id]", Short: "Select the active payment wallet", Args: cobra.ExactArgs(1), RunE: walletsSelectHandler}
var walletsDeleteCmd = &cobra.Command{Use: "delete [id]", Short: "Delete a managed wallet", Args: cobra.ExactArgs(1), RunE: walletsDeleteHandler}
var walletsRenameCmd = &cobra.Command{Use: "rename [id] [name]", Short: "Rename a managed wallet", Args: cobra.ExactArgs(2), RunE: walletsRenameHandler}

func init() {
	walletsRootCmd.AddCommand(walletsGenerateCmd, walletsCreateCmd, walletsImportCmd, walletsListCmd, walletsSelectCmd, walletsDeleteCmd, walletsRenameCmd)
}

// RegisterWallets mounts the wallets command tree on root.
func RegisterWallets(root *cobra.Command) { root.AddCommand(walletsRootCmd) }
