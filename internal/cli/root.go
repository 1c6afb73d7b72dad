// Package cli provides the command-line interface for Orion.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "orion",
		Short: "Browse and download apps from the Orion store",
		Long: `Orion browses a curated catalog of open source apps and resolves each
entry to the newest downloadable artifact published on GitHub.

Release lists are cached locally and refreshed at most every 10 minutes with
an API token, or every 60 minutes without one. A pre-resolved mirror is used
first so most apps resolve without touching the API.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default ./orion.yaml or <data-dir>/orion.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	pf.String("data-dir", "", "directory holding the local store")
	pf.String("catalog-url", "", "override the remote catalog URL")
	pf.String("mirror-url", "", "override the release mirror URL")
	pf.String("config-url", "", "override the remote store config URL")
	pf.String("api-url", "", "GitHub API base URL")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newInstalledCmd(opts),
		newRefreshCmd(opts),
		newDownloadCmd(opts),
		newRedownloadCmd(opts),
		newTokenCmd(opts),
		newRemoteCmd(opts),
		newThemeCmd(opts),
		newStoreConfigCmd(opts),
		newDevCmd(opts),
		newResetCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print the version number only")
	return cmd
}
