// Command cartctl inspects and maintains cart snapshots in the configured
// store. It reads the same environment as the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and maintain storefront cart snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level for store connection messages")

	root.AddCommand(
		newShowCmd(),
		newNormalizeCmd(),
		newDeleteCmd(),
		newMigrateCmd(),
		newPurgeGuestsCmd(),
	)
	return root
}
