package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionstore/orion/internal/version"
)

const testCatalog = `[
	{"id": "app", "name": "App", "description": "A test app", "downloadUrl": "#", "githubRepo": "org/app", "releaseKeyword": "stable", "platform": "Android", "category": "Privacy"},
	{"id": "web", "name": "Web", "description": "A static app", "downloadUrl": "https://example.com/web.apk", "platform": "PC", "category": "Utility"}
]`

const testMirror = `{"org/app": [{"tag_name": "stable-1.2", "assets": [
	{"name": "app-arm64-v8a.apk", "browser_download_url": "https://dl/app-arm64-v8a.apk", "size": 10485760},
	{"name": "app-x86_64.apk", "browser_download_url": "https://dl/app-x86_64.apk", "size": 11534336}
]}]}`

// testEnv is an isolated data directory and a fake remote.
type testEnv struct {
	t       *testing.T
	dataDir string
	server  *httptest.Server

	mu     sync.Mutex
	hits   int
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	env := &testEnv{t: t, dataDir: t.TempDir(), config: `{}`}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits++
		config := env.config
		env.mu.Unlock()

		switch r.URL.Path {
		case "/config.json":
			_, _ = w.Write([]byte(config))
		case "/apps.json":
			_, _ = w.Write([]byte(testCatalog))
		case "/mirror.json":
			_, _ = w.Write([]byte(testMirror))
		case "/icon.png":
			_, _ = w.Write([]byte("PNG"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) setConfig(doc string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = doc
}

func (e *testEnv) requests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}

// run executes the command line and returns its combined output.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--data-dir", e.dataDir,
		"--config-url", e.server.URL + "/config.json",
		"--catalog-url", e.server.URL + "/apps.json",
		"--mirror-url", e.server.URL + "/mirror.json",
		"--api-url", e.server.URL,
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

func TestList_ResolvesFromMirror(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("list")
	assert.Contains(t, out, "stable-1.2")
	assert.Contains(t, out, "10.0 MB")
	assert.Contains(t, out, "A static app")

	out = env.mustRun("list", "--offline", "--platform", "pc")
	assert.Contains(t, out, "web")
	assert.NotContains(t, out, "stable-1.2")

	out = env.mustRun("list", "--offline", "--category", "privacy", "--query", "TEST")
	assert.Contains(t, out, "app")
	assert.NotContains(t, out, "A static app")

	out = env.mustRun("list", "--offline", "--query", "nothing matches")
	assert.Contains(t, out, "No apps found.")
}

func TestList_InvalidFilters(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "list", "--platform", "ios")
	assert.ErrorContains(t, err, `unknown platform "ios"`)

	_, err = env.run("", "list", "--category", "games")
	assert.ErrorContains(t, err, `unknown category "games"`)
	assert.Zero(t, env.requests())
}

func TestList_Maintenance(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(`{"maintenanceMode": true, "maintenanceMessage": "Back soon"}`)

	out, err := env.run("", "list")
	require.Error(t, err)
	assert.Contains(t, out, "Maintenance: Back soon")
}

func TestList_LocalModeMakesNoRequests(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.mustRun("remote", "off"), "Remote sources: off")

	out := env.mustRun("list")
	assert.Contains(t, out, "capcut-premium")
	assert.Contains(t, out, "View on GitHub")
	assert.Zero(t, env.requests())

	assert.Contains(t, env.mustRun("remote", "toggle"), "Remote sources: on")
	assert.Contains(t, env.mustRun("remote"), "Remote sources: on")
	_, err := env.run("", "remote", "maybe")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("refresh", "--cached")

	out := env.mustRun("show", "app")
	assert.Contains(t, out, "Version:     stable-1.2")
	assert.Contains(t, out, "Download:    https://dl/app-arm64-v8a.apk")
	assert.Contains(t, out, "Variants:")
	assert.Contains(t, out, "https://dl/app-x86_64.apk")
	assert.Contains(t, out, "Repository:  org/app")

	_, err := env.run("", "show", "missing")
	assert.ErrorContains(t, err, `app "missing" not found`)
}

func TestDownloadAndInstalled(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("refresh", "--cached")

	out := env.mustRun("download", "app")
	assert.Contains(t, out, "https://dl/app-arm64-v8a.apk")
	assert.Contains(t, out, "Downloading App")

	out = env.mustRun("download", "app", "--arch", "X64")
	assert.Contains(t, out, "https://dl/app-x86_64.apk")

	_, err := env.run("", "download", "app", "--arch", "armv7")
	assert.ErrorContains(t, err, "no armv7 variant")

	out = env.mustRun("installed")
	assert.Contains(t, out, "stable-1.2")
	assert.Contains(t, out, "installed")

	out = env.mustRun("redownload", "web")
	assert.Contains(t, out, "https://example.com/web.apk")
	assert.Contains(t, env.mustRun("installed"), "web")
}

func TestDownload_UnresolvedApp(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("remote", "off")

	_, err := env.run("", "download", "capcut-premium")
	assert.ErrorContains(t, err, "has no download link")

	env.mustRun("list")
	assert.Contains(t, env.mustRun("show", "capcut-premium"), "Version:     View on GitHub")
	out, err := env.run("", "download", "capcut-premium")
	require.NoError(t, err, "a releases page is opened instead")
	assert.Contains(t, out, "github.com/RookieEnough/Orion-Data/releases")
	assert.Contains(t, env.mustRun("installed"), "No apps downloaded yet.")
}

func TestTheme(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun("theme"), "Theme: light")
	assert.Contains(t, env.mustRun("theme", "cycle"), "Theme: dusk")
	assert.Contains(t, env.mustRun("theme", "DARK"), "Theme: dark")
	assert.Contains(t, env.mustRun("theme", "cycle"), "Theme: light")

	_, err := env.run("", "theme", "neon")
	assert.ErrorContains(t, err, "unknown theme")
}

func TestToken(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.mustRun("token"), "No token set.")

	out := env.mustRun("token", "set", "ghp_abcdefgh1234")
	assert.Contains(t, out, "Token saved.")
	assert.Contains(t, out, "Catalog refreshed: 2 apps.")
	assert.Contains(t, env.mustRun("token"), "Token: ghp_********1234")

	out, err := env.run("ghp_fromstdin99\n", "token", "set")
	require.NoError(t, err, out)
	assert.Contains(t, env.mustRun("token"), "Token: ghp_*******in99")

	_, err = env.run("\n", "token", "set")
	assert.ErrorContains(t, err, "must not be empty")

	assert.Contains(t, env.mustRun("token", "clear"), "Token removed.")
	assert.Contains(t, env.mustRun("token"), "No token set.")
}

func TestStoreConfig(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(`{"announcement": "New apps!", "latestStoreVersion": "99.0.0", "storeDownloadUrl": "https://store/dl"}`)

	out := env.mustRun("config", "--offline")
	assert.Contains(t, out, "RookieZ")
	assert.NotContains(t, out, "New apps!")

	out = env.mustRun("config", "--faq")
	assert.Contains(t, out, "Announcement:  New apps!")
	assert.Contains(t, out, "(available)")
	assert.Contains(t, out, "Get it at:     https://store/dl")
	assert.Contains(t, out, "FAQ:")

	out = env.mustRun("config", "--json")
	assert.Contains(t, out, `"announcement": "New apps!"`)
}

func TestDev(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("dev", "tap", "-n", "4")
	assert.Contains(t, out, "5 steps away")

	out = env.mustRun("dev", "tap", "-n", "9")
	assert.Contains(t, out, "You are now a developer!")
	assert.Contains(t, env.mustRun("dev"), "Developer mode: true")

	out = env.mustRun("dev", "profile", "-n", "8")
	assert.Contains(t, out, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.Contains(t, env.mustRun("dev"), "Legend: true")

	env.mustRun("dev", "reset-legend")
	assert.Contains(t, env.mustRun("dev"), "Legend: false")
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("theme", "dark")

	out, err := env.run("n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Contains(t, env.mustRun("theme"), "Theme: dark")

	assert.Contains(t, env.mustRun("reset", "--yes"), "Local data reset.")
	assert.Contains(t, env.mustRun("theme"), "Theme: light")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, version.Version+"\n", env.mustRun("version", "--short"))
	assert.Contains(t, env.mustRun("version"), "orion version "+version.Version)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("abc"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcd1234wxyz"))
}
