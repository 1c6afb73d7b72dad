package appstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/kvstore"
	"github.com/orionstore/orion/internal/notify"
	"github.com/orionstore/orion/internal/syncer"
)

type recordingOpener struct {
	urls []string
	err  error
}

func (r *recordingOpener) Open(url string) error {
	r.urls = append(r.urls, url)
	return r.err
}

type fakeRefresher struct {
	calls  chan bool
	result error
}

func (f *fakeRefresher) Sync(_ context.Context, forced bool) (syncer.Outcome, error) {
	f.calls <- forced
	return syncer.Outcome{}, f.result
}

func newApp(t *testing.T) (*App, *recordingOpener, *kvstore.Store) {
	t.Helper()
	store := kvstore.New(kvstore.NewMemoryBackend(0))
	opener := &recordingOpener{}
	return New(store, Options{Opener: opener}), opener, store
}

func TestTheme(t *testing.T) {
	app, _, store := newApp(t)
	assert.Equal(t, ThemeLight, app.Settings.Theme())

	assert.Equal(t, ThemeDusk, app.Settings.CycleTheme())
	assert.Equal(t, ThemeDark, app.Settings.CycleTheme())
	assert.Equal(t, ThemeLight, app.Settings.CycleTheme())

	store.Set(kvstore.KeyTheme, `"dark"`)
	assert.Equal(t, ThemeDark, app.Settings.Theme(), "JSON encoded values are accepted")

	store.Set(kvstore.KeyTheme, "neon")
	assert.Equal(t, ThemeLight, app.Settings.Theme())
}

func TestRemoteMode(t *testing.T) {
	app, _, _ := newApp(t)
	assert.True(t, app.Settings.RemoteMode(), "remote sources are used by default")
	assert.False(t, app.Settings.ToggleRemoteMode())
	assert.False(t, app.Settings.RemoteMode())
	app.Settings.SetRemoteMode(true)
	assert.True(t, app.Settings.RemoteMode())
}

func TestSetToken_TriggersForcedRefresh(t *testing.T) {
	store := kvstore.New(kvstore.NewMemoryBackend(0))
	refresher := &fakeRefresher{calls: make(chan bool, 1), result: syncer.ErrSyncInProgress}
	app := New(store, Options{Refresher: refresher, RefreshDelay: time.Millisecond})

	done := app.Settings.SetToken("  ghp_secret ")
	assert.Equal(t, "ghp_secret", app.Settings.Token())

	select {
	case forced := <-refresher.calls:
		assert.True(t, forced)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh was not triggered")
	}
	assert.ErrorIs(t, <-done, syncer.ErrSyncInProgress)

	done = app.Settings.SetToken("")
	<-refresher.calls
	<-done
	assert.Empty(t, app.Settings.Token())
	_, ok := store.Get(kvstore.KeyToken)
	assert.False(t, ok)
}

func TestSetToken_WithoutRefresher(t *testing.T) {
	app, _, _ := newApp(t)
	assert.NoError(t, <-app.Settings.SetToken("tok"))
}

func TestRegistry(t *testing.T) {
	app, _, _ := newApp(t)
	reg := app.Registry

	_, ok := reg.Installed("a")
	assert.False(t, ok)

	reg.Register("a", "1.0")
	reg.Register("b", catalog.InstalledMarker)
	assert.Equal(t, map[string]string{"a": "1.0", "b": catalog.InstalledMarker}, reg.All())

	assert.True(t, reg.HasUpdate(catalog.AppDescriptor{ID: "a", LatestVersion: "1.1"}))
	assert.False(t, reg.HasUpdate(catalog.AppDescriptor{ID: "a", LatestVersion: "1.0"}))
	assert.False(t, reg.HasUpdate(catalog.AppDescriptor{ID: "b", LatestVersion: "9.0"}))
	assert.False(t, reg.HasUpdate(catalog.AppDescriptor{ID: "c", LatestVersion: "9.0"}))

	reg.Forget("a")
	_, ok = reg.Installed("a")
	assert.False(t, ok)
}

func TestTapDeveloper(t *testing.T) {
	app, _, store := newApp(t)

	for i := 1; i <= 3; i++ {
		assert.False(t, app.TapDeveloper())
		_, shown := app.Board.Current(notify.KindDev)
		assert.False(t, shown, "no message before the countdown starts (tap %d)", i)
	}

	assert.False(t, app.TapDeveloper())
	msg, _ := app.Board.Current(notify.KindDev)
	assert.Equal(t, "You are 5 steps away from being a developer.", msg)

	for i := 0; i < 4; i++ {
		app.TapDeveloper()
	}
	msg, _ = app.Board.Current(notify.KindDev)
	assert.Equal(t, "You are 1 steps away from being a developer.", msg)

	assert.True(t, app.TapDeveloper())
	msg, _ = app.Board.Current(notify.KindDev)
	assert.Equal(t, "You are now a developer!", msg)
	assert.True(t, app.Settings.DevUnlocked())

	v, _ := store.Get(kvstore.KeyDevUnlocked)
	assert.Equal(t, "true", v)

	assert.True(t, app.TapDeveloper())
	msg, _ = app.Board.Current(notify.KindDev)
	assert.Equal(t, "You are already a developer.", msg)
}

func TestTapProfile(t *testing.T) {
	app, opener, _ := newApp(t)

	for i := 1; i < LegendTaps; i++ {
		reached, err := app.TapProfile("https://egg")
		require.NoError(t, err)
		assert.False(t, reached)
	}
	reached, err := app.TapProfile("https://egg")
	require.NoError(t, err)
	assert.True(t, reached)
	assert.Equal(t, []string{"https://egg"}, opener.urls)
	assert.True(t, app.Settings.Legend())

	reached, _ = app.TapProfile("https://egg")
	assert.False(t, reached, "the count restarts")

	app.ResetLegend()
	assert.False(t, app.Settings.Legend())
}

func TestDownload(t *testing.T) {
	app, opener, _ := newApp(t)
	pkg := catalog.AppDescriptor{
		ID:            "app",
		Name:          "App",
		LatestVersion: "1.0",
		DownloadURL:   "https://dl/app.APK",
	}

	kind, err := app.Download(pkg, "")
	require.NoError(t, err)
	assert.Equal(t, DownloadInstall, kind)
	v, _ := app.Registry.Installed("app")
	assert.Equal(t, "1.0", v)
	_, shown := app.Board.Current(notify.KindInstall)
	assert.True(t, shown)

	kind, err = app.Download(pkg, "")
	require.NoError(t, err)
	assert.Equal(t, DownloadInstall, kind, "same version again is not an update")

	pkg.LatestVersion = "1.1"
	kind, err = app.Download(pkg, "https://dl/app-arm64.apk")
	require.NoError(t, err)
	assert.Equal(t, DownloadUpdate, kind)
	v, _ = app.Registry.Installed("app")
	assert.Equal(t, "1.1", v)

	assert.Equal(t, []string{"https://dl/app.APK", "https://dl/app.APK", "https://dl/app-arm64.apk"}, opener.urls)
}

func TestDownload_WebLinkRecordsNothing(t *testing.T) {
	app, opener, _ := newApp(t)
	page := catalog.AppDescriptor{ID: "web", LatestVersion: "1.0", DownloadURL: "https://github.com/org/app/releases"}

	kind, err := app.Download(page, "")
	require.NoError(t, err)
	assert.Equal(t, DownloadWeb, kind)
	assert.Equal(t, []string{"https://github.com/org/app/releases"}, opener.urls)
	assert.Empty(t, app.Registry.All())
}

func TestDownload_NoLink(t *testing.T) {
	app, opener, _ := newApp(t)

	for _, url := range []string{"#", "javascript:alert(1)"} {
		_, err := app.Download(catalog.AppDescriptor{ID: "x", DownloadURL: url}, "")
		assert.ErrorIs(t, err, ErrNoDownloadLink)
	}
	msg, _ := app.Board.Current(notify.KindError)
	assert.Equal(t, "Download link not found", msg)
	assert.Empty(t, opener.urls)
}

func TestDownload_OpenerFailure(t *testing.T) {
	app, opener, _ := newApp(t)
	opener.err = errors.New("no browser")

	_, err := app.Download(catalog.AppDescriptor{ID: "x", LatestVersion: "1.0", DownloadURL: "https://dl/x.exe"}, "")
	assert.ErrorContains(t, err, "no browser")
	_, ok := app.Registry.Installed("x")
	assert.False(t, ok, "nothing is recorded when the opener fails")

	app.Registry.Register("x", "0.9")
	_, err = app.Download(catalog.AppDescriptor{ID: "x", LatestVersion: "1.0", DownloadURL: "https://dl/x.exe"}, "")
	require.Error(t, err)
	v, _ := app.Registry.Installed("x")
	assert.Equal(t, "0.9", v)

	_, err = app.Redownload(catalog.AppDescriptor{ID: "x", LatestVersion: "1.0", DownloadURL: "https://dl/x.exe"}, "")
	require.Error(t, err)
	v, _ = app.Registry.Installed("x")
	assert.Equal(t, "0.9", v, "a failed redownload keeps the previous record")
}

func TestRedownload(t *testing.T) {
	app, _, _ := newApp(t)
	pkg := catalog.AppDescriptor{ID: "app", LatestVersion: "2.0", DownloadURL: "https://dl/app.apk"}
	app.Registry.Register("app", "1.0")

	kind, err := app.Redownload(pkg, "")
	require.NoError(t, err)
	assert.Equal(t, DownloadInstall, kind, "the previous version is forgotten first")
}

func TestReset(t *testing.T) {
	app, _, store := newApp(t)
	app.Registry.Register("a", "1")
	app.Settings.SetTheme(ThemeDark)
	store.Set("gh_v3_org/app", "{}")

	app.Reset()

	assert.Empty(t, store.Keys(""))
	assert.Equal(t, ThemeLight, app.Settings.Theme())
	assert.Empty(t, app.Registry.All())
}
