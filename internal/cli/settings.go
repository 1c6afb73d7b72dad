package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/orionstore/orion/internal/appstate"
	"github.com/orionstore/orion/internal/syncer"
)

func newTokenCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub API token",
		Long: `Manage the GitHub personal access token used to resolve releases.

With a token, release lists are revalidated every 10 minutes and apps without
a mirror entry are resolved live. Changing the token refreshes the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			if tok := s.app.Settings.Token(); tok != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n", maskToken(tok))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No token set.")
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store a token and refresh the catalog",
		Long: `Store a token and refresh the catalog.

When no token is given as an argument it is read from standard input, without
echo when standard input is a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok string
			if len(args) == 1 {
				tok = args[0]
			} else {
				var err error
				if tok, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "GitHub token: "); err != nil {
					return err
				}
			}
			if strings.TrimSpace(tok) == "" {
				return errors.New("token must not be empty; use 'orion token clear' to remove it")
			}
			return changeToken(cmd, g, tok)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the token and refresh the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return changeToken(cmd, g, "")
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func changeToken(cmd *cobra.Command, g *globalOptions, tok string) error {
	s, err := openSession(cmd, g, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	err = <-s.app.Settings.SetToken(tok)
	if tok == "" {
		fmt.Fprintln(out, "Token removed.")
	} else {
		fmt.Fprintln(out, "Token saved.")
	}
	switch {
	case errors.Is(err, syncer.ErrMaintenance):
		fmt.Fprintf(out, "Maintenance: %s\n", s.syncer.Config().MaintenanceNotice())
		return nil
	case err != nil:
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Fprintf(out, "Catalog refreshed: %d apps.\n", len(s.syncer.Apps()))
	return nil
}

// readSecret reads one line from in. Terminal input is read without echo.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func maskToken(tok string) string {
	if len(tok) <= 8 {
		return strings.Repeat("*", len(tok))
	}
	return tok[:4] + strings.Repeat("*", len(tok)-8) + tok[len(tok)-4:]
}

func newRemoteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remote [on|off|toggle]",
		Short: "Show or change whether remote sources are used",
		Long: `Show or change whether the remote catalog, mirror and store config are used.

When remote sources are off the bundled catalog is shown and no requests are
made unless a refresh is forced.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			settings := s.app.Settings
			if len(args) == 1 {
				switch strings.ToLower(args[0]) {
				case "on":
					settings.SetRemoteMode(true)
				case "off":
					settings.SetRemoteMode(false)
				case "toggle":
					settings.ToggleRemoteMode()
				default:
					return fmt.Errorf("invalid argument %q: expected on, off or toggle", args[0])
				}
			}
			state := "off"
			if settings.RemoteMode() {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remote sources: %s\n", state)
			return nil
		},
	}
}

func newThemeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dusk|dark|cycle]",
		Short:     "Show or change the theme preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dusk", "dark", "cycle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			settings := s.app.Settings
			if len(args) == 1 {
				if strings.EqualFold(args[0], "cycle") {
					settings.CycleTheme()
				} else {
					theme, ok := appstate.ParseTheme(args[0])
					if !ok {
						return fmt.Errorf("unknown theme %q", args[0])
					}
					settings.SetTheme(theme)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", settings.Theme())
			return nil
		},
	}
}

func newResetCmd(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local data",
		Long: `Delete all local data: settings, the token, the download registry, the
persisted catalog and every cached release list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprint(out, "Reset all local data? [y/N] ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			s.app.Reset()
			fmt.Fprintln(out, "Local data reset.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
