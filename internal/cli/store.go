package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/appstate"
	"github.com/orionstore/orion/internal/storeconfig"
	"github.com/orionstore/orion/internal/version"
)

type storeConfigOptions struct {
	offline bool
	json    bool
	faq     bool
}

func newStoreConfigCmd(g *globalOptions) *cobra.Command {
	opts := &storeConfigOptions{}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the store configuration and client update status",
		Long: `Show the remote store configuration: announcement, maintenance state,
advertised client versions, support links and the developer profile.

Without a reachable remote config the defaults are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !opts.offline && s.app.Settings.RemoteMode() {
				// A maintenance halt still leaves the fetched config in place.
				if _, err := s.syncer.Sync(cmd.Context(), false); err != nil {
					s.logger.Debug("sync before showing config failed", "error", err)
				}
			}

			cfg := s.syncer.Config()
			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			printStoreConfig(out, cfg, opts.faq)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "do not fetch the remote config")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the raw configuration as JSON")
	cmd.Flags().BoolVar(&opts.faq, "faq", false, "include the frequently asked questions")
	return cmd
}

func printStoreConfig(w io.Writer, cfg storeconfig.StoreConfig, faq bool) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-14s %s\n", label+":", value)
		}
	}

	if cfg.MaintenanceMode {
		field("Maintenance", cfg.MaintenanceNotice())
	}
	field("Announcement", cfg.Announcement)

	status := storeconfig.CheckStoreUpdate(cfg, version.Version)
	field("Client", fmt.Sprintf("%s (%s)", version.Version, status))
	field("Latest", cfg.LatestStoreVersion)
	field("Minimum", cfg.MinStoreVersion)
	if status != storeconfig.UpToDate {
		field("Get it at", cfg.StoreDownloadURL)
	}

	field("Developer", cfg.DevProfile.Name)
	field("About", cfg.DevProfile.Bio)
	field("Support", cfg.SupportEmail)
	field("GitHub", cfg.Socials.GitHub)
	field("X", cfg.Socials.X)
	field("Discord", cfg.Socials.Discord)
	field("Coffee", cfg.Socials.Coffee)

	if faq && len(cfg.FAQs) > 0 {
		fmt.Fprintln(w, "\nFAQ:")
		for _, item := range cfg.FAQs {
			fmt.Fprintf(w, "\n  %s\n  %s\n", item.Question, item.Answer)
		}
	}
}

func newDevCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "dev",
		Short:  "Developer options",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Developer mode: %t\n", s.app.Settings.DevUnlocked())
			fmt.Fprintf(out, "Legend: %t\n", s.app.Settings.Legend())
			return nil
		},
	}

	var taps int
	tapCmd := &cobra.Command{
		Use:   "tap",
		Short: "Tap the version label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			for i := 0; i < taps; i++ {
				s.app.TapDeveloper()
			}
			s.flushToasts(cmd.OutOrStdout())
			return nil
		},
	}
	tapCmd.Flags().IntVarP(&taps, "times", "n", 1, "number of taps")

	var profileTaps int
	var open bool
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Tap the developer profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var opener appstate.Opener = printOpener(out)
			if open {
				opener = appstate.OpenerFunc(systemOpener)
			}
			s, err := openSession(cmd, g, opener)
			if err != nil {
				return err
			}
			url := s.syncer.Config().EasterEggURL
			for i := 0; i < profileTaps; i++ {
				if _, err := s.app.TapProfile(url); err != nil {
					return err
				}
			}
			return nil
		},
	}
	profileCmd.Flags().IntVarP(&profileTaps, "times", "n", 1, "number of taps")
	profileCmd.Flags().BoolVar(&open, "open", false, "open links in the system browser")

	legendResetCmd := &cobra.Command{
		Use:   "reset-legend",
		Short: "Clear the legend flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			s.app.ResetLegend()
			return nil
		},
	}

	cmd.AddCommand(tapCmd, profileCmd, legendResetCmd)
	return cmd
}
