package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainrpc"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
	"github.com/hyperware-ai/hypergrid-operator/internal/custody"
	"github.com/hyperware-ai/hypergrid-operator/internal/delegation"
	"github.com/hyperware-ai/hypergrid-operator/internal/identity"
	"github.com/hyperware-ai/hypergrid-operator/internal/ledger"
	"github.com/hyperware-ai/hypergrid-operator/internal/payment"
	"github.com/hyperware-ai/hypergrid-operator/internal/shim"
	"github.com/hyperware-ai/hypergrid-operator/internal/walletreg"
)

func serveHandler(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, env, logger, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	store, err := chainstore.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	rpc, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	hypermapAddr, err := env.Hypermap()
	if err != nil {
		return err
	}
	reader := chainrpc.New(rpc, hypermapAddr)
	receipts := chainrpc.NewReceiptSource(rpc)

	idChecker := identity.NewChecker(reader, reader, env)
	delegationChecker := delegation.NewChecker(reader)
	ledg := ledger.New(store)
	custodyClient := custody.New(cfg.Custody.BaseURL, cfg.Custody.ProcessAddress, logger)

	operatorTBA := common.HexToAddress(cfg.Operator.TBAAddress)
	paymentEngine := payment.New(env, idChecker, delegationChecker, ledg, custodyClient, store, receipts, operatorTBA, cfg.Node.Name, logger)

	wallets := walletreg.New()
	if cfg.Operator.HotWalletID != "" {
		info, err := custodyClient.GetWalletInfo(ctx, cfg.Operator.HotWalletID)
		if err != nil {
			return fmt.Errorf("resolve operator hot wallet: %w", err)
		}
		wallets.RegisterEncrypted(cfg.Operator.HotWalletID, common.HexToAddress(info.Address))
	}

	clientDir, err := loadClientDirectory(clientsPathFor(cfg.Store.Path))
	if err != nil {
		return err
	}

	gateway := shim.New(clientDir, store, paymentEngine, wallets, logger)

	srv := &http.Server{Addr: cfg.Shim.ListenAddr, Handler: gateway.Router()}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("serve: shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.Shim.ListenAddr).Info("serve: shim gateway listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

var serveCmd = &cobra.Command{Use: "serve", Short: "Run the /shim/mcp gateway", RunE: serveHandler}

// RegisterServe mounts the serve command on root.
func RegisterServe(root *cobra.Command) { root.AddCommand(serveCmd) }
