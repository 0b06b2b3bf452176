package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
	"github.com/hyperware-ai/hypergrid-operator/internal/ingest"
)

var (
	ingestOnce       sync.Once
	ingestStore      *chainstore.Store
	ingestEngine     *ingest.Ingester
	ingestLogger     *logrus.Logger
	ingestCheckpoint = 30 * time.Second
	ingestInitErr    error
)

func ingestInit(cmd *cobra.Command, _ []string) error {
	ingestOnce.Do(func() {
		cfg, env, logger, err := loadRuntimeConfig()
		if err != nil {
			ingestInitErr = err
			return
		}
		store, err := chainstore.Open(cfg.Store.Path, logger)
		if err != nil {
			ingestInitErr = fmt.Errorf("open store: %w", err)
			return
		}
		rpc, err := ethclient.DialContext(context.Background(), cfg.Chain.RPCURL)
		if err != nil {
			ingestInitErr = fmt.Errorf("dial rpc: %w", err)
			return
		}
		hypermapAddr, err := env.Hypermap()
		if err != nil {
			ingestInitErr = err
			return
		}
		categoryTop := chaincodec.Namehash(env.Publisher)
		ingestStore = store
		ingestEngine = ingest.New(store, rpc, hypermapAddr, categoryTop, cfg.Chain.FirstBlock, logger)
		ingestLogger = logger
		if cfg.Chain.CheckpointSecs > 0 {
			ingestCheckpoint = time.Duration(cfg.Chain.CheckpointSecs) * time.Second
		}
	})
	return ingestInitErr
}

func ingestRunHandler(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resumeFrom, found, err := ingestStore.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	if !found {
		resumeFrom = 0
	}

	ingestLogger.WithField("from_block", resumeFrom).Info("ingest: starting historical catch-up")
	if err := ingestEngine.Catchup(ctx, resumeFrom); err != nil {
		return fmt.Errorf("historical catch-up: %w", err)
	}

	sub, logCh, err := ingestEngine.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(ingestCheckpoint)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	fmt.Fprintln(cmd.OutOrStdout(), "ingest: live, watching for new registry logs")
	for {
		select {
		case <-sig:
			ingestLogger.Info("ingest: shutting down")
			return ingestEngine.Checkpoint(ctx)
		case err := <-sub.Err():
			return fmt.Errorf("subscription dropped: %w", err)
		case log := <-logCh:
			if err := ingestEngine.ApplyLog(ctx, log); err != nil {
				ingestLogger.WithError(err).Error("ingest: apply log failed")
			}
		case <-ticker.C:
			if err := ingestEngine.Checkpoint(ctx); err != nil {
				ingestLogger.WithError(err).Error("ingest: checkpoint failed")
			}
		}
	}
}

var ingestRootCmd = &cobra.Command{Use: "ingest", Short: "Mirror Hypergrid registry events", PersistentPreRunE: ingestInit}
var ingestRunCmd = &cobra.Command{Use: "run", Short: "Catch up historically, then stream live registry logs", RunE: ingestRunHandler}

func init() { ingestRootCmd.AddCommand(ingestRunCmd) }

// RegisterIngest mounts the ingest command tree on root.
func RegisterIngest(root *cobra.Command) { root.AddCommand(ingestRootCmd) }
