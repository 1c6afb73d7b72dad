package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/mirror"
	"github.com/orionstore/orion/internal/releasecache"
)

type response struct {
	result *github.Result
	err    error
}

type fakeFetcher struct {
	mu         sync.Mutex
	responses  map[string]response
	calls      []string
	validators map[string]string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses:  make(map[string]response),
		validators: make(map[string]string),
	}
}

func (f *fakeFetcher) fresh(repo, etag string, releases ...github.Release) {
	f.responses[repo] = response{result: &github.Result{Status: github.StatusFresh, Releases: releases, Validator: etag}}
}

func (f *fakeFetcher) ListReleases(_ context.Context, repo, validator string) (*github.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, repo)
	f.validators[repo] = validator
	resp, ok := f.responses[repo]
	if !ok {
		return nil, errors.New("not found")
	}
	return resp.result, resp.err
}

type harness struct {
	fetcher *fakeFetcher
	cache   *releasecache.Cache
	clock   time.Time
}

func newHarness(t *testing.T, authenticated bool) (*harness, *Resolver) {
	t.Helper()
	h := &harness{
		fetcher: newFakeFetcher(),
		clock:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	store := kvstore.New(kvstore.NewMemoryBackend(0))
	h.cache = releasecache.New(store, releasecache.Options{
		Authenticated: authenticated,
		Clock:         func() time.Time { return h.clock },
	})
	r := New(Options{
		Fetcher:    h.fetcher,
		Cache:      h.cache,
		BatchDelay: -1,
		Shuffle:    func([]string) {},
	})
	return h, r
}

func unresolved(id, repo, keyword string) catalog.AppDescriptor {
	return catalog.AppDescriptor{
		ID:             id,
		Name:           id,
		Platform:       catalog.PlatformAndroid,
		Version:        catalog.DefaultVersion,
		LatestVersion:  catalog.DefaultVersion,
		DownloadURL:    catalog.UnresolvedURL,
		Size:           catalog.UnknownSize,
		GitHubRepo:     repo,
		ReleaseKeyword: keyword,
	}
}

func asset(name string, size int64) github.Asset {
	return github.Asset{Name: name, BrowserDownloadURL: "https://dl.example/" + name, Size: size}
}

func TestResolve_EndToEnd(t *testing.T) {
	h, r := newHarness(t, true)
	h.fetcher.fresh("org/app", `"e1"`, github.Release{
		TagName: "stable-1.2",
		Assets:  []github.Asset{asset("app-arm64-v8a.apk", 10485760)},
	})

	out := r.Resolve(context.Background(), Input{
		Apps:          []catalog.AppDescriptor{unresolved("app", "org/app", "stable")},
		Authenticated: true,
	})

	require.Len(t, out, 1)
	app := out[0]
	assert.Equal(t, "stable-1.2", app.Version)
	assert.Equal(t, "stable-1.2", app.LatestVersion)
	assert.Equal(t, "https://dl.example/app-arm64-v8a.apk", app.DownloadURL)
	assert.Equal(t, "10.0 MB", app.Size)
	require.Len(t, app.Variants, 1)
	assert.Equal(t, catalog.ArchARM64, app.Variants[0].Arch)

	entry, ok := h.cache.Get("org/app")
	require.True(t, ok)
	assert.Equal(t, `"e1"`, entry.Validator)
}

func TestResolve_FallbackWhenNothingMatches(t *testing.T) {
	h, r := newHarness(t, true)
	h.fetcher.fresh("org/empty", "")
	h.fetcher.fresh("org/wrong", "", github.Release{TagName: "v1", Assets: []github.Asset{asset("app.exe", 1)}})
	// org/failing has no response and fails.

	apps := []catalog.AppDescriptor{
		unresolved("empty", "org/empty", ""),
		unresolved("wrong", "https://github.com/org/wrong/", ""),
		unresolved("failing", "org/failing", ""),
	}
	out := r.Resolve(context.Background(), Input{Apps: apps, Authenticated: true})

	for i, repo := range []string{"org/empty", "org/wrong", "org/failing"} {
		assert.Equal(t, "https://github.com/"+repo+"/releases", out[i].DownloadURL, repo)
		assert.Equal(t, catalog.ManualVersion, out[i].Version, repo)
		assert.Equal(t, catalog.UnknownVersion, out[i].LatestVersion, repo)
		assert.Equal(t, catalog.UnknownSize, out[i].Size, repo)
	}
}

func TestResolve_StaticLinksUntouchedUnlessForced(t *testing.T) {
	h, r := newHarness(t, true)
	h.fetcher.fresh("org/app", "", github.Release{TagName: "v9", Assets: []github.Asset{asset("app.apk", 1)}})

	static := unresolved("static", "org/app", "")
	static.DownloadURL = "https://example.com/app.apk"
	static.Version = "1.0"

	out := r.Resolve(context.Background(), Input{Apps: []catalog.AppDescriptor{static}, Authenticated: true})
	assert.Equal(t, static, out[0])
	assert.Empty(t, h.fetcher.calls)

	out = r.Resolve(context.Background(), Input{Apps: []catalog.AppDescriptor{static}, Forced: true})
	assert.Equal(t, "v9", out[0].Version)
	assert.Equal(t, []string{"org/app"}, h.fetcher.calls)
}

func TestResolve_AnonymousBackgroundCycleSkipsLiveFetch(t *testing.T) {
	h, r := newHarness(t, false)
	h.fetcher.fresh("org/app", "", github.Release{TagName: "v1", Assets: []github.Asset{asset("app.apk", 1)}})

	noRepo := unresolved("norepo", "", "")
	out := r.Resolve(context.Background(), Input{
		Apps: []catalog.AppDescriptor{unresolved("app", "org/app", ""), noRepo},
	})

	assert.Empty(t, h.fetcher.calls)
	assert.Equal(t, catalog.ManualVersion, out[0].Version)
	assert.Equal(t, noRepo, out[1], "apps without a repository stay as they are")
}

func TestResolve_MirrorTakesPriority(t *testing.T) {
	h, r := newHarness(t, true)
	snap, err := mirror.Parse([]byte(`{"https://github.com/org/app": {"tag_name": "m1", "assets": [{"name": "app.apk", "browser_download_url": "https://m/app.apk", "size": 1048576}]}}`))
	require.NoError(t, err)

	out := r.Resolve(context.Background(), Input{
		Apps:   []catalog.AppDescriptor{unresolved("app", "org/app", "")},
		Mirror: snap,
		Forced: true,
	})

	assert.Empty(t, h.fetcher.calls)
	assert.Equal(t, "m1", out[0].Version)
	assert.Equal(t, "https://m/app.apk", out[0].DownloadURL)
	assert.Equal(t, "1.0 MB", out[0].Size)
}

func TestResolve_DeduplicatesRepositories(t *testing.T) {
	h, r := newHarness(t, true)
	h.fetcher.fresh("org/suite", "", github.Release{
		TagName: "v1",
		Assets:  []github.Asset{asset("alpha.apk", 1), asset("beta.apk", 2)},
	})

	out := r.Resolve(context.Background(), Input{
		Apps: []catalog.AppDescriptor{
			unresolved("a", "org/suite", "alpha"),
			unresolved("b", "https://github.com/org/suite", "beta"),
		},
		Authenticated: true,
	})

	assert.Equal(t, []string{"org/suite"}, h.fetcher.calls)
	assert.Equal(t, "https://dl.example/alpha.apk", out[0].DownloadURL)
	assert.Equal(t, "https://dl.example/beta.apk", out[1].DownloadURL)
}

func TestResolve_CacheContract(t *testing.T) {
	h, r := newHarness(t, true)
	release := github.Release{TagName: "v1", Assets: []github.Asset{asset("app.apk", 1)}}
	h.fetcher.fresh("org/app", `"e1"`, release)
	apps := []catalog.AppDescriptor{unresolved("app", "org/app", "")}
	in := Input{Apps: apps, Authenticated: true}

	r.Resolve(context.Background(), in)
	require.Len(t, h.fetcher.calls, 1)

	// Fresh hit: no network call.
	h.clock = h.clock.Add(time.Minute)
	out := r.Resolve(context.Background(), in)
	assert.Len(t, h.fetcher.calls, 1)
	assert.Equal(t, "v1", out[0].Version)

	// Expired: revalidated with the stored validator; 304 keeps the payload.
	h.clock = h.clock.Add(releasecache.AuthenticatedTTL)
	h.fetcher.responses["org/app"] = response{result: &github.Result{Status: github.StatusNotModified, Validator: `"e1"`}}
	out = r.Resolve(context.Background(), in)
	assert.Len(t, h.fetcher.calls, 2)
	assert.Equal(t, `"e1"`, h.fetcher.validators["org/app"])
	assert.Equal(t, "v1", out[0].Version)

	entry, _ := h.cache.Get("org/app")
	assert.Equal(t, h.clock.UnixMilli(), entry.Timestamp, "not modified slides the window")

	// Forced and rate limited: stale payload is reused.
	h.fetcher.responses["org/app"] = response{err: errors.New("403 rate limit exceeded")}
	out = r.Resolve(context.Background(), Input{Apps: apps, Forced: true, Authenticated: true})
	assert.Len(t, h.fetcher.calls, 3)
	assert.Equal(t, "v1", out[0].Version)
}

func TestResolve_BatchesAreSequential(t *testing.T) {
	h, _ := newHarness(t, true)

	var (
		mu             sync.Mutex
		inFlight, peak int
		shuffled       bool
	)
	fetcher := fetcherFunc(func(ctx context.Context, repo, _ string) (*github.Result, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return &github.Result{Status: github.StatusFresh}, nil
	})

	r := New(Options{
		Fetcher:    fetcher,
		Cache:      h.cache,
		BatchSize:  2,
		BatchDelay: time.Millisecond,
		Shuffle:    func([]string) { shuffled = true },
	})

	var apps []catalog.AppDescriptor
	for _, repo := range []string{"o/a", "o/b", "o/c", "o/d", "o/e"} {
		apps = append(apps, unresolved(repo, repo, ""))
	}
	out := r.Resolve(context.Background(), Input{Apps: apps, Forced: true})

	assert.True(t, shuffled)
	assert.LessOrEqual(t, peak, 2)
	assert.Len(t, out, 5)
	assert.Len(t, h.cache.Repositories(), 5)
}

type fetcherFunc func(ctx context.Context, repo, validator string) (*github.Result, error)

func (f fetcherFunc) ListReleases(ctx context.Context, repo, validator string) (*github.Result, error) {
	return f(ctx, repo, validator)
}

func TestPlanSources(t *testing.T) {
	snap := mirror.Snapshot{"org/mirrored": nil}
	static := unresolved("static", "org/static", "")
	static.DownloadURL = "https://example.com/x.apk"

	apps := []catalog.AppDescriptor{
		static,
		unresolved("mirrored", "org/mirrored", ""),
		unresolved("live", "org/live", ""),
		unresolved("live-dup", "https://github.com/org/live", ""),
		unresolved("norepo", "", ""),
	}

	plan := PlanSources(apps, snap, false, true)
	assert.Equal(t, []Source{SourceNone, SourceMirror, SourceLive, SourceLive, SourceUnresolved}, plan.Sources)
	assert.Equal(t, []string{"org/live"}, plan.Queue)

	plan = PlanSources(apps, snap, false, false)
	assert.Equal(t, SourceUnresolved, plan.Sources[2])
	assert.Empty(t, plan.Queue)

	plan = PlanSources(apps, snap, true, true)
	assert.Equal(t, SourceLive, plan.Sources[0], "forced refresh re-resolves static links")
	assert.Equal(t, []string{"org/static", "org/live"}, plan.Queue)
}
