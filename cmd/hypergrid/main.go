// Command hypergrid is the operator-side runtime: it indexes the
// Hypergrid provider registry, verifies the node's on-chain identity and
// delegation, serves the /shim/mcp gateway authorized clients call
// through, and manages the hot wallets that sign outgoing USDC payments.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "hypergrid",
		Short: "Operator runtime for the Hypergrid provider marketplace",
	}

	RegisterWallets(root)
	RegisterClients(root)
	RegisterIdentity(root)
	RegisterIngest(root)
	RegisterServe(root)
	RegisterOnboard(root)
	RegisterDB(root)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
