package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
)

func wipeDBHandler(cmd *cobra.Command, _ []string) error {
	confirmed, _ := cmd.Flags().GetBool("yes")
	if !confirmed {
		return fmt.Errorf("refusing to wipe the registry store without --yes")
	}

	cfg, _, logger, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	store, err := chainstore.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.WipeAll(context.Background()); err != nil {
		return fmt.Errorf("wipe store: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "registry store wiped; re-run ingest to rebuild it from chain history")
	return nil
}

var wipeDBCmd = &cobra.Command{Use: "wipe-db", Short: "Erase the local registry store and checkpoint", RunE: wipeDBHandler}

func init() {
	wipeDBCmd.Flags().Bool("yes", false, "confirm the destructive wipe")
}

// RegisterDB mounts the db maintenance commands on root.
func RegisterDB(root *cobra.Command) { root.AddCommand(wipeDBCmd) }
