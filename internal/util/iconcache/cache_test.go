package iconcache

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	a := Filename("https://cdn/icons/app.webp?size=64")
	assert.True(t, strings.HasSuffix(a, ".webp"), a)
	assert.Len(t, a, 32+len(".webp"))

	assert.True(t, strings.HasSuffix(Filename("https://cdn/icon"), ".png"))
	assert.True(t, strings.HasSuffix(Filename("https://cdn/icon.verylongext"), ".png"))
	assert.NotEqual(t, Filename("https://cdn/a.png"), Filename("https://cdn/b.png"))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestFetch_CachesDownloads(t *testing.T) {
	pngData := testPNG(t, 48, 32)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(pngData)
	}))
	defer srv.Close()

	dir := t.TempDir()
	url := srv.URL + "/icon.png"

	icon, err := Fetch(context.Background(), url, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "png", icon.Format)
	assert.Equal(t, 48, icon.Width)
	assert.Equal(t, 32, icon.Height)
	data, err := os.ReadFile(icon.Path)
	require.NoError(t, err)
	assert.Equal(t, pngData, data)

	again, err := Fetch(context.Background(), url, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, icon, again)
	assert.EqualValues(t, 1, hits.Load(), "a cached icon is not downloaded again")

	_, err = Fetch(context.Background(), url, Options{Dir: dir, Refresh: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFetch_Errors(t *testing.T) {
	_, err := Fetch(context.Background(), "ftp://cdn/icon.png", Options{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "invalid icon URL")

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = Fetch(context.Background(), srv.URL+"/missing.png", Options{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "failed to download icon")

	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not an icon</html>"))
	}))
	defer html.Close()
	dir := t.TempDir()
	_, err = Fetch(context.Background(), html.URL+"/icon.png", Options{Dir: dir})
	assert.ErrorContains(t, err, "not a supported image")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
