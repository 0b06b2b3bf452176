package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/bootstrap"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainrpc"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
)

func onboardHandler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, env, logger, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	hotWalletID := args[0]
	rpc, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	hypermapAddr, err := env.Hypermap()
	if err != nil {
		return err
	}
	reader := chainrpc.New(rpc, hypermapAddr)
	idChecker := identity.NewChecker(reader, reader, env)
	receipts := chainrpc.NewBootstrapReceiptFetcher(chainrpc.NewReceiptSource(rpc))
	custodyClient := custody.New(cfg.Custody.BaseURL, cfg.Custody.ProcessAddress, logger)

	minterTBA := common.HexToAddress(env.HypergridAddress)

	info, err := custodyClient.GetWalletInfo(ctx, hotWalletID)
	if err != nil {
		return fmt.Errorf("resolve hot wallet: %w", err)
	}
	hotWalletAddr := common.HexToAddress(info.Address)

	onboarder := bootstrap.New(env, idChecker, custodyClient, receipts, minterTBA, cfg.Node.Name, logger)
	result, err := onboarder.Onboard(ctx, hotWalletID, hotWalletAddr)
	if err != nil {
		return err
	}

	if result.AlreadyOnboarded {
		fmt.Fprintf(cmd.OutOrStdout(), "already onboarded: entry=%s tba=%s owner=%s\n", result.EntryName, result.TBAAddress, result.OwnerAddress)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "onboarded: entry=%s tba=%s tx=%s\n", result.EntryName, result.TBAAddress, result.MintTxHash)
	fmt.Fprintln(cmd.OutOrStdout(), "set operator.tba_address in config to this TBA address to finish setup")
	return nil
}

var onboardCmd = &cobra.Command{Use: "onboard [hot-wallet-id]", Short: "Mint the operator's namespace entry and seed delegation notes", Args: cobra.ExactArgs(1), RunE: onboardHandler}

// RegisterOnboard mounts the onboard command on root.
func RegisterOnboard(root *cobra.Command) { root.AddCommand(onboardCmd) }
