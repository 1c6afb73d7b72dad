package kvstore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EvictionPreservesAllowListedKeys(t *testing.T) {
	backend := NewMemoryBackend(400)
	store := New(backend)

	preserved := map[string]string{
		KeyTheme:       "dark",
		KeyDevUnlocked: "true",
		KeyLegend:      "true",
		KeyToken:       "ghp_secret",
		KeyInstalled:   `{"app":"1.0"}`,
		KeyRemoteMode:  "false",
	}
	for k, v := range preserved {
		store.Set(k, v)
	}
	store.Set("gh_v3_org/app", strings.Repeat("x", 150))

	// Does not fit next to the cache entry, fits once it is evicted.
	store.Set(KeyCachedApps, strings.Repeat("y", 200))

	for k, v := range preserved {
		got, ok := store.Get(k)
		require.True(t, ok, "preserved key %s missing", k)
		assert.Equal(t, v, got)
	}

	_, ok := store.Get("gh_v3_org/app")
	assert.False(t, ok, "non-preserved key should be evicted")

	got, ok := store.Get(KeyCachedApps)
	require.True(t, ok)
	assert.Len(t, got, 200)
}

func TestStore_WriteDroppedWhenStillFull(t *testing.T) {
	store := New(NewMemoryBackend(50))
	store.Set(KeyTheme, "dusk")

	assert.NotPanics(t, func() {
		store.Set("big", strings.Repeat("z", 100))
	})

	_, ok := store.Get("big")
	assert.False(t, ok)

	theme, ok := store.Get(KeyTheme)
	require.True(t, ok)
	assert.Equal(t, "dusk", theme)
}

type failingBackend struct {
	*MemoryBackend
}

func (f failingBackend) Get(string) (string, error) {
	return "", errors.New("disk on fire")
}

func TestStore_GetSwallowsBackendErrors(t *testing.T) {
	store := New(failingBackend{NewMemoryBackend(0)})
	v, ok := store.Get(KeyTheme)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_GetJSONDiscardsCorruptValue(t *testing.T) {
	store := New(NewMemoryBackend(0))
	store.Set("entry", "{not json")

	var v map[string]any
	assert.False(t, store.GetJSON("entry", &v))

	_, ok := store.Get("entry")
	assert.False(t, ok, "corrupt value should be removed")

	store.SetJSON("entry", map[string]int{"a": 1})
	var m map[string]int
	require.True(t, store.GetJSON("entry", &m))
	assert.Equal(t, 1, m["a"])
}

func TestStore_KeysWithPrefix(t *testing.T) {
	store := New(NewMemoryBackend(0))
	store.Set("gh_v3_b/b", "1")
	store.Set("gh_v3_a/a", "1")
	store.Set(KeyTheme, "light")

	assert.Equal(t, []string{"gh_v3_a/a", "gh_v3_b/b"}, store.Keys("gh_v3_"))
}

func TestFileBackend_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	backend, err := NewFileBackend(path, DefaultQuota)
	require.NoError(t, err)
	store := New(backend)
	store.Set(KeyTheme, "dark")
	store.Set("temp", "x")
	store.Remove("temp")

	reopened, err := NewFileBackend(path, DefaultQuota)
	require.NoError(t, err)

	v, err := reopened.Get(KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	_, err = reopened.Get("temp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBackend_Quota(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "store.json"), 10)
	require.NoError(t, err)

	assert.ErrorIs(t, backend.Set("key", "value-too-long"), ErrQuotaExceeded)
	assert.NoError(t, backend.Set("k", "v"))
}
