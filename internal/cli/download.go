package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/appstate"
	"github.com/orionstore/orion/internal/catalog"
)

func newRefreshCmd(g *globalOptions) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the catalog and revalidate every release list",
		Long: `Refresh the catalog from the remote sources and resolve every app again.

A refresh revalidates cached release lists with the API even when they are
still fresh. Without an API token this spends anonymous rate limit quota;
use --cached to only fetch release lists that have expired.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			outcome, err := s.sync(cmd.Context(), out, !cached)
			if err != nil {
				return err
			}

			source := outcome.CatalogSource
			if !outcome.Remote {
				source += ", remote sources disabled"
			}
			fmt.Fprintf(out, "Catalog refreshed: %d apps (catalog: %s, mirror: %d repositories) in %s\n",
				outcome.Apps, source, outcome.MirrorRepos, outcome.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "reuse release lists that are still fresh")
	return cmd
}

type downloadOptions struct {
	arch string
	open bool
}

func newDownloadCmd(g *globalOptions) *cobra.Command {
	opts := &downloadOptions{}
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download an app",
		Long: `Download the resolved artifact of an app and record its version.

The download link is printed unless --open is given, in which case it is handed
to the system browser. Links to a releases page are opened without recording
a version.

Examples:
  orion download youtube-revanced
  orion download youtube-revanced --arch arm64 --open`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, g, opts, args[0], false)
		},
	}
	addDownloadFlags(cmd, opts)
	return cmd
}

func newRedownloadCmd(g *globalOptions) *cobra.Command {
	opts := &downloadOptions{}
	cmd := &cobra.Command{
		Use:   "redownload <id>",
		Short: "Forget the recorded version of an app and download it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, g, opts, args[0], true)
		},
	}
	addDownloadFlags(cmd, opts)
	return cmd
}

func addDownloadFlags(cmd *cobra.Command, opts *downloadOptions) {
	cmd.Flags().StringVar(&opts.arch, "arch", "", "architecture variant (arm64, armv7, x64, x86, universal)")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the link in the system browser")
}

func runDownload(cmd *cobra.Command, g *globalOptions, opts *downloadOptions, id string, again bool) error {
	out := cmd.OutOrStdout()
	var opener appstate.Opener = printOpener(out)
	if opts.open {
		opener = appstate.OpenerFunc(systemOpener)
	}

	s, err := openSession(cmd, g, opener)
	if err != nil {
		return err
	}
	app, err := s.find(id)
	if err != nil {
		return err
	}

	url := ""
	if opts.arch != "" {
		if url, err = variantURL(app, opts.arch); err != nil {
			return err
		}
	}

	var kind appstate.DownloadKind
	if again {
		kind, err = s.app.Redownload(app, url)
	} else {
		kind, err = s.app.Download(app, url)
	}
	s.flushToasts(cmd.ErrOrStderr())
	if errors.Is(err, appstate.ErrNoDownloadLink) {
		return fmt.Errorf("%s has no download link; run 'orion refresh' to resolve it", app.ID)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("download recorded", "app", app.ID, "kind", kind, "version", app.LatestVersion)
	return nil
}

// variantURL returns the link of the variant built for arch.
func variantURL(app catalog.AppDescriptor, arch string) (string, error) {
	names := make([]string, 0, len(app.Variants))
	for _, v := range app.Variants {
		if strings.EqualFold(string(v.Arch), arch) {
			return v.URL, nil
		}
		names = append(names, string(v.Arch))
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s has no architecture variants", app.ID)
	}
	return "", fmt.Errorf("%s has no %s variant (available: %s)", app.ID, arch, strings.Join(names, ", "))
}
