package cli

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/appstate"
	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/config"
	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/notify"
	"github.com/orionstore/orion/internal/syncer"
)

// session is the state shared by the commands of one invocation.
type session struct {
	cfg    *config.Config
	logger hclog.Logger
	store  *kvstore.Store
	app    *appstate.App
	syncer *syncer.Syncer
}

// globalOptions are the persistent flags of the root command.
type globalOptions struct {
	configFile string
	verbose    bool
	quiet      bool
}

// newLogger builds the process logger. --verbose and --quiet take precedence
// over the configured level.
func newLogger(w io.Writer, level string, opts *globalOptions) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Warn
	}
	switch {
	case opts.verbose:
		lvl = hclog.Debug
	case opts.quiet:
		lvl = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "orion",
		Output: w,
		Level:  lvl,
	})
}

// openSession loads the configuration and wires the store, application
// state and syncer. The persisted catalog is loaded before returning.
func openSession(cmd *cobra.Command, opts *globalOptions, opener appstate.Opener) (*session, error) {
	cfg, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, opts)
	if cfg.File != "" {
		logger.Debug("loaded configuration", "file", cfg.File)
	}

	backend, err := kvstore.NewFileBackend(cfg.StorePath(), kvstore.DefaultQuota)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	store := kvstore.New(backend, kvstore.WithLogger(logger.Named("store")))

	s := &session{cfg: cfg, logger: logger, store: store}

	s.app = appstate.New(store, appstate.Options{
		Opener: opener,
		Refresher: appstate.RefresherFunc(func(ctx context.Context, forced bool) (syncer.Outcome, error) {
			return s.syncer.Sync(ctx, forced)
		}),
		Board:  notify.NewBoard(notify.Options{Logger: logger.Named("notify")}),
		Logger: logger.Named("app"),
	})

	s.syncer = syncer.New(syncer.Options{
		Store:    store,
		Settings: s.app.Settings,
		Sources: syncer.Sources{
			ConfigURL:  cfg.ConfigURL,
			CatalogURL: cfg.CatalogURL,
			MirrorURL:  cfg.MirrorURL,
		},
		Timeouts: syncer.Timeouts{
			Default: cfg.Timeouts.Default,
			Config:  cfg.Timeouts.Config,
			Mirror:  cfg.Timeouts.Mirror,
		},
		APIURL:     cfg.GitHub.APIURL,
		BatchSize:  cfg.Fetch.BatchSize,
		BatchDelay: cfg.Fetch.BatchDelay,
		Logger:     logger.Named("sync"),
	})
	s.syncer.Bootstrap()

	return s, nil
}

// sync runs a cycle and reports a maintenance halt on out. Other failures
// are returned.
func (s *session) sync(ctx context.Context, out io.Writer, forced bool) (syncer.Outcome, error) {
	outcome, err := s.syncer.Sync(ctx, forced)
	if outcome.State == syncer.MaintenanceHalt {
		fmt.Fprintf(out, "Maintenance: %s\n", outcome.Maintenance)
		return outcome, err
	}
	if err != nil {
		return outcome, fmt.Errorf("sync failed: %w", err)
	}
	if a := s.syncer.Config().Announcement; a != "" {
		fmt.Fprintf(out, "%s\n\n", a)
	}
	return outcome, nil
}

// find returns the catalog entry with the given id.
func (s *session) find(id string) (catalog.AppDescriptor, error) {
	app, ok := catalog.Find(s.syncer.Apps(), id)
	if !ok {
		return catalog.AppDescriptor{}, fmt.Errorf("app %q not found", id)
	}
	return app, nil
}

// flushToasts writes the visible messages to w and dismisses them.
func (s *session) flushToasts(w io.Writer) {
	for _, toast := range s.app.Board.Active() {
		fmt.Fprintf(w, "[%s] %s\n", toast.Kind, toast.Message)
		s.app.Board.Dismiss(toast.Kind)
	}
}

// systemOpener opens links with the desktop handler of the platform.
func systemOpener(link string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", link)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// printOpener writes links to w instead of opening them.
func printOpener(w io.Writer) appstate.OpenerFunc {
	return func(link string) error {
		_, err := fmt.Fprintln(w, strings.TrimSpace(link))
		return err
	}
}
