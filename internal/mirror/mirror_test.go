package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc := []byte(`{
		"https://github.com/org/single/": {"tag_name": "v1", "assets": [{"name": "a.apk", "browser_download_url": "https://dl/a.apk", "size": 1}]},
		"org/many": [{"tag_name": "v3"}, {"tag_name": "v2"}],
		"org/empty": [],
		"org/bad": "not a release",
		"": {"tag_name": "ignored"}
	}`)

	snap, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	single, ok := snap.Lookup("org/single")
	require.True(t, ok, "keys are normalized")
	require.Len(t, single, 1)
	assert.Equal(t, "v1", single[0].TagName)
	assert.Equal(t, "https://dl/a.apk", single[0].Assets[0].BrowserDownloadURL)

	many, ok := snap.Lookup("https://www.github.com/org/many")
	require.True(t, ok, "lookups are normalized")
	assert.Equal(t, "v3", many[0].TagName)
	assert.Len(t, many, 2)

	empty, ok := snap.Lookup("org/empty")
	assert.True(t, ok)
	assert.Empty(t, empty)

	_, ok = snap.Lookup("org/bad")
	assert.False(t, ok)
}

func TestParse_NotAnObject(t *testing.T) {
	_, err := Parse([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestNilSnapshot(t *testing.T) {
	var snap Snapshot
	_, ok := snap.Lookup("org/app")
	assert.False(t, ok)
	assert.Zero(t, snap.Len())
}
