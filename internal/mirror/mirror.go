// Package mirror decodes the precomputed release index that substitutes for
// individual release listings.
package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
)

// Snapshot maps normalized owner/repo identifiers to release lists. A nil
// Snapshot is an absent mirror.
type Snapshot map[string][]github.Release

// Parse decodes a mirror document. Keys are normalized; a value may be a
// single release object or an array of them. Values of any other shape are
// skipped.
func Parse(data []byte) (Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mirror: %w", err)
	}

	snap := make(Snapshot, len(doc))
	for key, value := range doc {
		repo := catalog.NormalizeRepository(key)
		if repo == "" {
			continue
		}
		releases, ok := decodeReleases(value)
		if !ok {
			continue
		}
		snap[repo] = releases
	}
	return snap, nil
}

func decodeReleases(value json.RawMessage) ([]github.Release, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return nil, false
	}

	switch value[0] {
	case '[':
		var releases []github.Release
		if err := json.Unmarshal(value, &releases); err != nil {
			return nil, false
		}
		if releases == nil {
			releases = []github.Release{}
		}
		return releases, true
	case '{':
		var release github.Release
		if err := json.Unmarshal(value, &release); err != nil {
			return nil, false
		}
		return []github.Release{release}, true
	default:
		return nil, false
	}
}

// Lookup returns the releases recorded for repo. Any reference form accepted
// by catalog.NormalizeRepository may be used.
func (s Snapshot) Lookup(repo string) ([]github.Release, bool) {
	if s == nil {
		return nil, false
	}
	releases, ok := s[catalog.NormalizeRepository(repo)]
	return releases, ok
}

// Len returns the number of repositories in the snapshot.
func (s Snapshot) Len() int {
	return len(s)
}
