// Package appstate is the explicit application state: persisted settings,
// the installed version registry and the user actions that change them.
package appstate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/notify"
)

const (
	// DevTapsRequired unlocks developer mode.
	DevTapsRequired = 9

	// devCountdownFrom is the number of remaining taps from which progress
	// is shown.
	devCountdownFrom = 5

	// LegendTaps reveals the easter egg.
	LegendTaps = 8
)

// ErrNoDownloadLink is returned when an app has no usable download link.
var ErrNoDownloadLink = errors.New("download link not found")

// Opener hands a link to the operating environment.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// DownloadKind describes what a download action did.
type DownloadKind int

const (
	// DownloadWeb opened a web page; nothing was recorded.
	DownloadWeb DownloadKind = iota
	// DownloadInstall recorded a first download.
	DownloadInstall
	// DownloadUpdate recorded a download replacing another version.
	DownloadUpdate
)

func (k DownloadKind) String() string {
	switch k {
	case DownloadInstall:
		return "install"
	case DownloadUpdate:
		return "update"
	default:
		return "web"
	}
}

// Options configures an App.
type Options struct {
	Opener    Opener
	Refresher Refresher
	Board     *notify.Board

	// RefreshDelay separates a token change from its refresh. Zero uses
	// DefaultRefreshDelay.
	RefreshDelay time.Duration

	Logger hclog.Logger
}

// App bundles the state the presentation layer works with.
type App struct {
	Settings *Settings
	Registry *Registry
	Board    *notify.Board

	store  *kvstore.Store
	opener Opener
	logger hclog.Logger

	mu        sync.Mutex
	devTaps   int
	easterTap int
}

// New creates an App over store.
func New(store *kvstore.Store, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	board := opts.Board
	if board == nil {
		board = notify.NewBoard(notify.Options{Logger: logger.Named("notify")})
	}
	delay := opts.RefreshDelay
	if delay == 0 {
		delay = DefaultRefreshDelay
	}

	return &App{
		Settings: &Settings{
			store:        store,
			refresher:    opts.Refresher,
			refreshDelay: delay,
			logger:       logger,
		},
		Registry: &Registry{store: store},
		Board:    board,
		store:    store,
		opener:   opts.Opener,
		logger:   logger,
	}
}

// TapDeveloper counts a tap towards unlocking developer mode and reports
// whether it is unlocked afterwards.
func (a *App) TapDeveloper() bool {
	if a.Settings.DevUnlocked() {
		a.Board.Show(notify.KindDev, "You are already a developer.")
		return true
	}

	a.mu.Lock()
	a.devTaps++
	remaining := DevTapsRequired - a.devTaps
	a.mu.Unlock()

	switch {
	case remaining <= 0:
		a.store.Set(kvstore.KeyDevUnlocked, "true")
		a.Board.Show(notify.KindDev, "You are now a developer!")
		return true
	case remaining <= devCountdownFrom:
		a.Board.Show(notify.KindDev, fmt.Sprintf("You are %d steps away from being a developer.", remaining))
	}
	return false
}

// TapProfile counts a tap on the developer profile. The LegendTaps-th tap
// opens url, records the legend flag and restarts the count.
func (a *App) TapProfile(url string) (bool, error) {
	a.mu.Lock()
	a.easterTap++
	reached := a.easterTap >= LegendTaps
	if reached {
		a.easterTap = 0
	}
	a.mu.Unlock()

	if !reached {
		return false, nil
	}

	a.store.Set(kvstore.KeyLegend, "true")
	return true, a.open(url)
}

// ResetLegend clears the legend flag.
func (a *App) ResetLegend() {
	a.mu.Lock()
	a.easterTap = 0
	a.mu.Unlock()
	a.store.Remove(kvstore.KeyLegend)
}

// Download opens url, or the app's download link when url is empty. Links to
// an installable package record app.LatestVersion in the registry; any other
// link is opened as a web page.
func (a *App) Download(app catalog.AppDescriptor, url string) (DownloadKind, error) {
	if url == "" {
		url = app.DownloadURL
	}
	url = catalog.SanitizeURL(url)
	if url == catalog.UnresolvedURL {
		a.Board.Show(notify.KindError, "Download link not found")
		return DownloadWeb, ErrNoDownloadLink
	}

	lower := strings.ToLower(url)
	if !strings.HasSuffix(lower, ".apk") && !strings.HasSuffix(lower, ".exe") {
		return DownloadWeb, a.open(url)
	}

	if err := a.open(url); err != nil {
		return DownloadInstall, err
	}
	previous, had := a.Registry.Installed(app.ID)
	a.Registry.Register(app.ID, app.LatestVersion)

	if had && previous != app.LatestVersion {
		a.Board.Show(notify.KindUpdate, fmt.Sprintf("Updating %s to %s", app.Name, app.LatestVersion))
		return DownloadUpdate, nil
	}
	a.Board.Show(notify.KindInstall, fmt.Sprintf("Downloading %s", app.Name))
	return DownloadInstall, nil
}

// Redownload forgets the recorded version of app and downloads it again.
func (a *App) Redownload(app catalog.AppDescriptor, url string) (DownloadKind, error) {
	if url == "" {
		url = app.DownloadURL
	}
	if catalog.SanitizeURL(url) == catalog.UnresolvedURL {
		a.Board.Show(notify.KindError, "Download link not found")
		return DownloadWeb, ErrNoDownloadLink
	}
	previous, had := a.Registry.Installed(app.ID)
	a.Registry.Forget(app.ID)
	kind, err := a.Download(app, url)
	if err != nil && had {
		a.Registry.Register(app.ID, previous)
	}
	return kind, err
}

// Reset wipes every persisted value, including the installed registry.
func (a *App) Reset() {
	a.mu.Lock()
	a.devTaps = 0
	a.easterTap = 0
	a.mu.Unlock()
	a.store.Clear()
	a.logger.Info("local state reset")
}

func (a *App) open(url string) error {
	if a.opener == nil {
		return nil
	}
	if err := a.opener.Open(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
