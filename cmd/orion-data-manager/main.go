// Package main provides the orion-data-manager CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/datacli"
	"github.com/orionstore/orion/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orion-data-manager",
		Short: "Maintain the Orion catalog and release mirror",
		Long: `Data manager for the Orion store.

Maintain the published documents with support for:
  - Validating the catalog and the release mirror
  - Building the release mirror from GitHub releases
  - Pruning mirror entries the catalog no longer uses
  - Checking that static download links are reachable

Examples:
  # Rebuild the mirror, keeping three releases per repository
  GITHUB_TOKEN=... orion-data-manager mirror --catalog apps.json --mirror mirror.json --keep 3

  # Validate both documents before publishing
  orion-data-manager validate --catalog apps.json --mirror mirror.json --strict`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		datacli.ValidateCmd(),
		datacli.MirrorCmd(),
		datacli.PruneCmd(),
		datacli.VerifyCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
