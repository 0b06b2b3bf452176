package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainrpc"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
)

var (
	identityOnce    sync.Once
	identityChecker *identity.Checker
	identityEnv     chainenv.Constants
	identityNode    string
	identityInitErr error
)

func identityInit(cmd *cobra.Command, _ []string) error {
	identityOnce.Do(func() {
		cfg, env, _, err := loadRuntimeConfig()
		if err != nil {
			identityInitErr = err
			return
		}
		rpc, err := ethclient.DialContext(context.Background(), cfg.Chain.RPCURL)
		if err != nil {
			identityInitErr = fmt.Errorf("dial rpc: %w", err)
			return
		}
		hypermapAddr, err := env.Hypermap()
		if err != nil {
			identityInitErr = err
			return
		}
		reader := chainrpc.New(rpc, hypermapAddr)
		identityChecker = identity.NewChecker(reader, reader, env)
		identityEnv = env
		identityNode = cfg.Node.Name
	})
	return identityInitErr
}

func identityCheckHandler(cmd *cobra.Command, _ []string) error {
	result := identityChecker.Check(context.Background(), identityEnv, identityNode)
	fmt.Fprintf(cmd.OutOrStdout(), "entry=%s status=%s", result.EntryName, result.Status)
	if result.Message != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " message=%q", result.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if !result.Verified() {
		return fmt.Errorf("identity not verified: %s", result.Status)
	}
	return nil
}

var identityRootCmd = &cobra.Command{Use: "identity", Short: "Inspect on-chain operator identity", PersistentPreRunE: identityInit}
var identityCheckCmd = &cobra.Command{Use: "check", Short: "Resolve and classify the operator's namespace sub-entry", RunE: identityCheckHandler}

func init() { identityRootCmd.AddCommand(identityCheckCmd) }

// RegisterIdentity mounts the identity command tree on root.
func RegisterIdentity(root *cobra.Command) { root.AddCommand(identityRootCmd) }
