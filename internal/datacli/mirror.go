package datacli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/datamanager"
	"github.com/orionstore/orion/internal/github"
)

// MirrorCmd returns the mirror command.
func MirrorCmd() *cobra.Command {
	var (
		catalogPath string
		mirrorPath  string
		apiURL      string
		keep        int
		concurrency int
		prune       bool
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Build the release mirror from GitHub",
		Long: `Build the release mirror by listing the releases of every repository
referenced by the catalog.

Only releases carrying installable packages are kept, newest first: the
newest --keep releases plus the newest release each app of the repository
resolves to. A repository whose listing fails keeps its previous mirror entry.

A mirror path ending in .gz or .xz is read and written compressed.

The GITHUB_TOKEN environment variable is used for authentication when set.

Examples:
  orion-data-manager mirror --catalog apps.json --mirror mirror.json
  orion-data-manager mirror --keep 3 --prune --dry-run
  orion-data-manager mirror --mirror dist/mirror.json.xz
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd, verbose)
			out := cmd.OutOrStdout()

			c, err := datamanager.LoadCatalog(cmd.Context(), catalogPath)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			previous, err := datamanager.LoadMirror(cmd.Context(), mirrorPath)
			if err != nil {
				return fmt.Errorf("failed to load mirror: %w", err)
			}

			client, err := github.NewClient(github.Options{
				Token:   os.Getenv("GITHUB_TOKEN"),
				BaseURL: apiURL,
			})
			if err != nil {
				return err
			}

			builder := datamanager.NewBuilder(datamanager.BuildOptions{
				Fetcher:     client,
				Concurrency: concurrency,
				Keep:        keep,
				Logger:      logger,
			})

			start := time.Now()
			targets := c.Targets()
			fmt.Fprintf(out, "Listing releases of %d repositories...\n", len(targets))
			res := builder.Build(cmd.Context(), targets, previous)

			if prune {
				datamanager.Prune(res.Mirror, c.Repositories())
			}

			fmt.Fprintf(out, "\n=== Mirror Summary ===\n")
			fmt.Fprintf(out, "Updated: %d\n", len(res.Updated))
			fmt.Fprintf(out, "Kept: %d\n", len(res.Kept))
			if len(res.Failed) > 0 {
				fmt.Fprintf(out, "Errors: %d\n", len(res.Failed))
				failed := make([]string, 0, len(res.Failed))
				for repo := range res.Failed {
					failed = append(failed, repo)
				}
				sort.Strings(failed)
				for _, repo := range failed {
					fmt.Fprintf(out, "  ✗ %s: %v\n", repo, res.Failed[repo])
				}
			}
			for repo := range previous {
				if _, ok := res.Mirror[repo]; !ok {
					fmt.Fprintf(out, "Dropped: %s\n", repo)
				}
			}
			fmt.Fprintf(out, "Duration: %s\n", time.Since(start).Round(time.Millisecond))

			if dryRun {
				fmt.Fprintln(out, "\nDry run: mirror not written")
				return nil
			}
			if err := datamanager.WriteMirror(mirrorPath, res.Mirror); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n✓ Mirror written to %s\n", mirrorPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "apps.json", "Path or URL of the catalog")
	cmd.Flags().StringVar(&mirrorPath, "mirror", "mirror.json", "Path of the mirror to write")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "GitHub API base URL")
	cmd.Flags().IntVar(&keep, "keep", datamanager.DefaultKeep, "Releases to keep per repository")
	cmd.Flags().IntVar(&concurrency, "concurrency", datamanager.DefaultConcurrency, "Concurrent release listings")
	cmd.Flags().BoolVar(&prune, "prune", false, "Trim assets that are not installable packages")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write the mirror")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

// PruneCmd returns the prune command.
func PruneCmd() *cobra.Command {
	var (
		catalogPath string
		mirrorPath  string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove mirror entries the catalog no longer references",
		Long: `Remove mirror entries of repositories that are no longer referenced by the
catalog and trim assets that are not installable packages.

Examples:
  orion-data-manager prune --catalog apps.json --mirror mirror.json
  orion-data-manager prune --dry-run
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			c, snap, err := loadDocuments(cmd.Context(), catalogPath, mirrorPath)
			if err != nil {
				return err
			}

			removed := datamanager.Prune(snap, c.Repositories())
			for _, repo := range removed {
				fmt.Fprintf(out, "Removed: %s\n", repo)
			}
			fmt.Fprintf(out, "\n=== Prune Summary ===\n")
			fmt.Fprintf(out, "Removed: %d\n", len(removed))
			fmt.Fprintf(out, "Remaining: %d\n", snap.Len())

			if dryRun {
				fmt.Fprintln(out, "\nDry run: mirror not written")
				return nil
			}
			return datamanager.WriteMirror(mirrorPath, snap)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "apps.json", "Path or URL of the catalog")
	cmd.Flags().StringVar(&mirrorPath, "mirror", "mirror.json", "Path of the mirror")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write the mirror")

	return cmd
}

func newLogger(cmd *cobra.Command, verbose bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "orion-data-manager",
		Output: cmd.ErrOrStderr(),
		Level:  level,
	})
}
