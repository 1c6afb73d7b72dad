// Package datacli provides CLI commands for the store data manager tool.
package datacli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/datamanager"
	"github.com/orionstore/orion/internal/mirror"
)

// ValidateCmd returns the validate command.
func ValidateCmd() *cobra.Command {
	var (
		catalogPath string
		mirrorPath  string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and mirror documents",
		Long: `Validate the catalog document, and the mirror document when given.

Checks:
  - JSON syntax
  - Unique app ids
  - Usable download links or a repository to resolve one
  - Repository references in owner/repo form
  - Release keywords that cannot tell apps of one repository apart
  - Mirror coverage of unresolved apps

Examples:
  orion-data-manager validate
  orion-data-manager validate --catalog apps.json --mirror mirror.json --strict
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Validating catalog: %s\n\n", catalogPath)

			c, snap, err := loadDocuments(cmd.Context(), catalogPath, mirrorPath)
			if err != nil {
				return fmt.Errorf("✗ %w", err)
			}

			report := datamanager.Validate(c, snap)

			fmt.Fprintf(out, "Apps: %d\n", len(c.Apps))
			fmt.Fprintf(out, "Repositories: %d\n", len(c.Repositories()))
			if snap != nil {
				fmt.Fprintf(out, "Mirrored repositories: %d\n", snap.Len())
			}
			fmt.Fprintln(out)

			if len(report.Warnings) > 0 {
				fmt.Fprintf(out, "Warnings (%d):\n", len(report.Warnings))
				for _, w := range report.Warnings {
					fmt.Fprintf(out, "  ⚠ %s\n", w)
				}
				fmt.Fprintln(out)
			}

			if len(report.Errors) > 0 {
				fmt.Fprintf(out, "Errors (%d):\n", len(report.Errors))
				for _, e := range report.Errors {
					fmt.Fprintf(out, "  ✗ %s\n", e)
				}
				fmt.Fprintln(out)
				return fmt.Errorf("validation failed with %d error(s)", len(report.Errors))
			}
			if strict && len(report.Warnings) > 0 {
				return fmt.Errorf("validation failed with %d warning(s)", len(report.Warnings))
			}

			fmt.Fprintln(out, "✓ Catalog is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "apps.json", "Path or URL of the catalog")
	cmd.Flags().StringVar(&mirrorPath, "mirror", "", "Path or URL of the mirror")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

// loadDocuments loads the catalog, and the mirror when mirrorPath is set.
func loadDocuments(ctx context.Context, catalogPath, mirrorPath string) (*datamanager.Catalog, mirror.Snapshot, error) {
	c, err := datamanager.LoadCatalog(ctx, catalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if mirrorPath == "" {
		return c, nil, nil
	}
	snap, err := datamanager.LoadMirror(ctx, mirrorPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid mirror: %w", err)
	}
	return c, snap, nil
}
