package datacli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/datamanager"
)

// VerifyCmd returns the verify command.
func VerifyCmd() *cobra.Command {
	var (
		catalogPath string
		concurrency int
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that static download links are reachable",
		Long: `Send a HEAD request to every static download link and variant link of
the catalog. Apps resolved from releases are skipped.

Examples:
  orion-data-manager verify --catalog apps.json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			c, err := datamanager.LoadCatalog(cmd.Context(), catalogPath)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			results := datamanager.NewVerifier(nil, concurrency).VerifyCatalog(cmd.Context(), c.Apps)
			unavailable := 0
			for _, r := range results {
				if r.Available {
					if verbose {
						fmt.Fprintf(out, "  ✓ %s: %s\n", r.App, r.URL)
					}
					continue
				}
				unavailable++
				fmt.Fprintf(out, "  ✗ %s: %s (%s)\n", r.App, r.URL, r.Reason)
			}

			fmt.Fprintf(out, "\n=== Verify Summary ===\n")
			fmt.Fprintf(out, "Checked: %d\n", len(results))
			fmt.Fprintf(out, "Unavailable: %d\n", unavailable)
			if unavailable > 0 {
				return fmt.Errorf("%d link(s) unavailable", unavailable)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "apps.json", "Path or URL of the catalog")
	cmd.Flags().IntVar(&concurrency, "concurrency", datamanager.DefaultConcurrency, "Concurrent checks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also list reachable links")

	return cmd
}
