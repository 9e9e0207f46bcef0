// validctl is the operator CLI: schema migration, seeding and offline quotes.
//
// Usage:
//
//	validctl migrate
//	validctl seed-admin --email=<email> [--name=<name>]   (password from VALID_ADMIN_PASSWORD)
//	validctl seed-sponsors <file.yaml>
//	validctl quote --users=10 --queries-per-day=10 [--risk=low] [--format=text|json|proposal|order-form|xlsx] [-o file]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "validctl",
		Short:         "Operator tooling for the VALID backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedAdminCmd())
	root.AddCommand(newSeedSponsorsCmd())
	root.AddCommand(newQuoteCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
