// Package syncer sequences a catalog refresh: remote config, catalog and
// mirror are fetched, the catalog is resolved and the result is persisted.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/mirror"
	"github.com/orionstore/orion/internal/releasecache"
	"github.com/orionstore/orion/internal/resolver"
	"github.com/orionstore/orion/internal/storeconfig"
	httputil "github.com/orionstore/orion/internal/util/http"
)

// CacheVersion stamps the persisted catalog. A snapshot with another stamp is
// ignored at startup.
const CacheVersion = "v1_3"

// Default remote sources.
const (
	DefaultConfigURL  = "https://raw.githubusercontent.com/RookieEnough/Orion-Data/main/config.json"
	DefaultCatalogURL = "https://raw.githubusercontent.com/RookieEnough/Orion-Data/main/apps.json"
	DefaultMirrorURL  = "https://raw.githubusercontent.com/RookieEnough/Orion-Data/main/mirror.json"
)

// Default per-source timeouts.
const (
	DefaultTimeout       = 8 * time.Second
	DefaultConfigTimeout = 3 * time.Second
	DefaultMirrorTimeout = 5 * time.Second
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another one
	// is running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrMaintenance is returned, wrapped with the maintenance message, when
	// the remote config halts the cycle.
	ErrMaintenance = errors.New("store is under maintenance")

	// ErrLoadFailed is returned when the cycle aborted unexpectedly.
	ErrLoadFailed = errors.New("failed to load apps")
)

// State is the phase of the orchestrator.
type State int

const (
	Idle State = iota
	Loading
	Refreshing
	Resolving
	Persisted
	MaintenanceHalt
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Refreshing:
		return "refreshing"
	case Resolving:
		return "resolving"
	case Persisted:
		return "persisted"
	case MaintenanceHalt:
		return "maintenance"
	default:
		return "idle"
	}
}

// Settings exposes the runtime settings a cycle depends on.
type Settings interface {
	Token() string
	RemoteMode() bool
}

// Sources are the remote documents of a cycle.
type Sources struct {
	ConfigURL  string
	CatalogURL string
	MirrorURL  string
}

// Timeouts bound each remote fetch.
type Timeouts struct {
	Default time.Duration
	Config  time.Duration
	Mirror  time.Duration
}

// Options configures a Syncer.
type Options struct {
	Store    *kvstore.Store
	Settings Settings
	Sources  Sources
	Timeouts Timeouts

	// HTTPClient is used for every remote fetch. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// APIURL overrides the release provider endpoint.
	APIURL string

	// NewFetcher builds the release fetcher for a token. Defaults to a GitHub
	// client.
	NewFetcher func(token string) (resolver.Fetcher, error)

	BatchSize  int
	BatchDelay time.Duration
	Shuffle    func([]string)

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// OnState is called after every state change.
	OnState func(State)

	Logger hclog.Logger
}

// Outcome summarizes a completed cycle.
type Outcome struct {
	State         State
	Remote        bool
	CatalogSource string
	MirrorRepos   int
	Apps          int
	Maintenance   string
	Duration      time.Duration
}

// Syncer owns the catalog shown to the user.
type Syncer struct {
	opts   Options
	logger hclog.Logger

	run    sync.Mutex
	synced bool // guarded by run

	mu     sync.RWMutex
	state  State
	apps   []catalog.AppDescriptor
	config storeconfig.StoreConfig
}

// New creates a Syncer. Call Bootstrap before the first Sync to load the
// persisted snapshot.
func New(opts Options) *Syncer {
	if opts.Sources.ConfigURL == "" {
		opts.Sources.ConfigURL = DefaultConfigURL
	}
	if opts.Sources.CatalogURL == "" {
		opts.Sources.CatalogURL = DefaultCatalogURL
	}
	if opts.Sources.MirrorURL == "" {
		opts.Sources.MirrorURL = DefaultMirrorURL
	}
	if opts.Timeouts.Default == 0 {
		opts.Timeouts.Default = DefaultTimeout
	}
	if opts.Timeouts.Config == 0 {
		opts.Timeouts.Config = DefaultConfigTimeout
	}
	if opts.Timeouts.Mirror == 0 {
		opts.Timeouts.Mirror = DefaultMirrorTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.NewFetcher == nil {
		opts.NewFetcher = func(token string) (resolver.Fetcher, error) {
			return github.NewClient(github.Options{
				Token:      token,
				BaseURL:    opts.APIURL,
				Timeout:    opts.Timeouts.Default,
				HTTPClient: opts.HTTPClient,
			})
		}
	}

	return &Syncer{
		opts:   opts,
		logger: opts.Logger,
		config: storeconfig.Defaults(),
	}
}

// Bootstrap loads the persisted catalog when its stamp matches CacheVersion,
// and the bundled catalog otherwise. It reports whether the snapshot was used.
func (s *Syncer) Bootstrap() bool {
	apps, ok := s.loadSnapshot()
	if !ok {
		apps = catalog.Bundled()
	}

	s.mu.Lock()
	s.apps = apps
	s.mu.Unlock()

	s.logger.Debug("bootstrapped catalog", "snapshot", ok, "apps", len(apps))
	return ok
}

func (s *Syncer) loadSnapshot() ([]catalog.AppDescriptor, bool) {
	stamp, ok := s.opts.Store.Get(kvstore.KeyCacheVersion)
	if !ok || stamp != CacheVersion {
		return nil, false
	}
	raw, ok := s.opts.Store.Get(kvstore.KeyCachedApps)
	if !ok {
		return nil, false
	}
	apps, err := catalog.DecodeCatalog([]byte(raw))
	if err != nil {
		s.logger.Warn("discarding corrupt catalog snapshot", "error", err)
		s.opts.Store.Remove(kvstore.KeyCachedApps)
		return nil, false
	}
	return apps, true
}

// Apps returns the current catalog.
func (s *Syncer) Apps() []catalog.AppDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.AppDescriptor(nil), s.apps...)
}

// Config returns the last fetched store config, or the defaults.
func (s *Syncer) Config() storeconfig.StoreConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// State returns the current phase.
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Syncer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.opts.OnState != nil {
		s.opts.OnState(state)
	}
}

// Sync runs one cycle. A forced cycle revalidates every cached release list
// and may spend anonymous API quota. Only one cycle runs at a time; a second
// call returns ErrSyncInProgress.
//
// Remote fetches fail independently and fall back to defaults, the bundled
// catalog or an absent mirror. A maintenance flag in the remote config halts
// the cycle with an error wrapping ErrMaintenance.
func (s *Syncer) Sync(ctx context.Context, forced bool) (outcome Outcome, err error) {
	if !s.run.TryLock() {
		return Outcome{}, ErrSyncInProgress
	}
	defer s.run.Unlock()

	start := s.opts.Clock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync aborted", "panic", r)
			outcome = Outcome{}
			err = fmt.Errorf("%w: %v", ErrLoadFailed, r)
		}
		outcome.Duration = s.opts.Clock().Sub(start)
		s.synced = true
		s.setState(Idle)
	}()

	// Background cycles after the first run without a visible phase.
	switch {
	case forced:
		s.setState(Refreshing)
	case !s.synced:
		s.setState(Loading)
	}

	outcome.Remote = s.opts.Settings.RemoteMode()
	apps := catalog.Bundled()
	outcome.CatalogSource = "bundled"
	var snap mirror.Snapshot

	if outcome.Remote {
		cfg := s.fetchConfig(ctx)
		s.mu.Lock()
		s.config = cfg
		s.mu.Unlock()

		if cfg.MaintenanceMode {
			notice := cfg.MaintenanceNotice()
			s.logger.Info("store in maintenance, halting sync", "message", notice)
			s.setState(MaintenanceHalt)
			outcome.State = MaintenanceHalt
			outcome.Maintenance = notice
			return outcome, fmt.Errorf("%w: %s", ErrMaintenance, notice)
		}

		var remote []catalog.AppDescriptor
		remote, snap = s.fetchCatalogAndMirror(ctx, cfg)
		if remote != nil {
			apps = remote
			outcome.CatalogSource = "remote"
		}
		outcome.MirrorRepos = snap.Len()
	}

	s.setState(Resolving)
	resolved, err := s.resolve(ctx, apps, snap, forced)
	if err != nil {
		return outcome, err
	}

	s.opts.Store.SetJSON(kvstore.KeyCachedApps, resolved)
	s.opts.Store.Set(kvstore.KeyCacheVersion, CacheVersion)

	s.mu.Lock()
	s.apps = resolved
	s.mu.Unlock()
	s.setState(Persisted)

	outcome.State = Persisted
	outcome.Apps = len(resolved)
	s.logger.Info("sync complete",
		"forced", forced,
		"remote", outcome.Remote,
		"catalog", outcome.CatalogSource,
		"mirror", outcome.MirrorRepos,
		"apps", outcome.Apps)
	return outcome, nil
}

func (s *Syncer) resolve(ctx context.Context, apps []catalog.AppDescriptor, snap mirror.Snapshot, forced bool) ([]catalog.AppDescriptor, error) {
	token := s.opts.Settings.Token()
	fetcher, err := s.opts.NewFetcher(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	cache := releasecache.New(s.opts.Store, releasecache.Options{
		Authenticated: token != "",
		Clock:         s.opts.Clock,
		Logger:        s.logger.Named("cache"),
	})
	r := resolver.New(resolver.Options{
		Fetcher:    fetcher,
		Cache:      cache,
		BatchSize:  s.opts.BatchSize,
		BatchDelay: s.opts.BatchDelay,
		Shuffle:    s.opts.Shuffle,
		Logger:     s.logger.Named("resolver"),
	})

	return r.Resolve(ctx, resolver.Input{
		Apps:          apps,
		Mirror:        snap,
		Forced:        forced,
		Authenticated: token != "",
	}), nil
}

// fetchConfig returns the remote store config, or the defaults when it cannot
// be fetched or parsed.
func (s *Syncer) fetchConfig(ctx context.Context) storeconfig.StoreConfig {
	body, err := s.fetch(ctx, s.opts.Sources.ConfigURL, s.opts.Timeouts.Config)
	if err != nil {
		s.logger.Debug("store config unavailable, using defaults", "error", err)
		return storeconfig.Defaults()
	}
	cfg, err := storeconfig.Decode(body)
	if err != nil {
		s.logger.Warn("invalid store config, using defaults", "error", err)
	}
	return cfg
}

// fetchCatalogAndMirror fetches both documents concurrently. The catalog is
// nil when it could not be fetched; the snapshot is nil when the mirror is
// absent.
func (s *Syncer) fetchCatalogAndMirror(ctx context.Context, cfg storeconfig.StoreConfig) ([]catalog.AppDescriptor, mirror.Snapshot) {
	catalogURL := s.opts.Sources.CatalogURL
	if cfg.AppsJSONURL != "" {
		catalogURL = cfg.AppsJSONURL
	}
	mirrorURL := s.opts.Sources.MirrorURL
	if cfg.MirrorJSONURL != "" {
		mirrorURL = cfg.MirrorJSONURL
	}

	var (
		apps []catalog.AppDescriptor
		snap mirror.Snapshot
		eg   errgroup.Group
	)

	eg.Go(func() error {
		body, err := s.fetch(ctx, catalogURL, s.opts.Timeouts.Default)
		if err != nil {
			s.logger.Warn("remote catalog unavailable, using bundled catalog", "url", catalogURL, "error", err)
			return nil
		}
		decoded, err := catalog.DecodeCatalog(body)
		if err != nil {
			s.logger.Warn("invalid remote catalog, using bundled catalog", "error", err)
			return nil
		}
		apps = decoded
		return nil
	})

	eg.Go(func() error {
		body, err := s.fetch(ctx, mirrorURL, s.opts.Timeouts.Mirror)
		if err != nil {
			s.logger.Debug("mirror unavailable", "url", mirrorURL, "error", err)
			return nil
		}
		parsed, err := mirror.Parse(body)
		if err != nil {
			s.logger.Warn("invalid mirror, ignoring", "error", err)
			return nil
		}
		snap = parsed
		return nil
	})

	_ = eg.Wait()
	return apps, snap
}

func (s *Syncer) fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	resp, err := httputil.Fetch(ctx, httputil.CacheBust(url, s.opts.Clock()), httputil.FetchOptions{
		Timeout: timeout,
		Client:  s.opts.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
