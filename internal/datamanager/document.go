// Package datamanager maintains the published data documents of the store:
// it validates the catalog, builds the release mirror from GitHub and checks
// that published links are reachable.
package datamanager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/compression"
	"github.com/orionstore/orion/internal/mirror"
	httputil "github.com/orionstore/orion/internal/util/http"
)

// Catalog is a catalog document as published and as clients see it.
type Catalog struct {
	// Raw holds the records as written.
	Raw []catalog.RawApp

	// Apps holds the records after client-side sanitization.
	Apps []catalog.AppDescriptor
}

// Want is a release an app of the catalog resolves to: the newest release
// matching Keyword with an asset ending in Ext.
type Want struct {
	Keyword string
	Ext     string
}

// Target is a repository to mirror with the releases its apps want.
type Target struct {
	Repo  string
	Wants []Want
}

// Targets returns the repositories referenced by the catalog, sorted, each
// with the distinct wants of its apps.
func (c *Catalog) Targets() []Target {
	index := make(map[string]int)
	var targets []Target
	for _, app := range c.Apps {
		repo := app.Repository()
		if repo == "" {
			continue
		}
		i, ok := index[repo]
		if !ok {
			i = len(targets)
			index[repo] = i
			targets = append(targets, Target{Repo: repo})
		}
		want := Want{Keyword: app.ReleaseKeyword, Ext: app.Platform.InstallExtension()}
		if !slices.Contains(targets[i].Wants, want) {
			targets[i].Wants = append(targets[i].Wants, want)
		}
	}
	sort.Slice(targets, func(a, b int) bool { return targets[a].Repo < targets[b].Repo })
	return targets
}

// Repositories returns the normalized repositories referenced by the
// catalog, sorted.
func (c *Catalog) Repositories() []string {
	seen := make(map[string]bool)
	var repos []string
	for _, app := range c.Apps {
		repo := app.Repository()
		if repo == "" || seen[repo] {
			continue
		}
		seen[repo] = true
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// ReadSource reads a local file, or fetches src when it is an http(s) URL.
// Sources ending in .gz, .xz or .bz2 are decompressed.
func ReadSource(ctx context.Context, src string) ([]byte, error) {
	var data []byte
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := httputil.Fetch(ctx, src, httputil.FetchOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
		}
		data = resp.Body
	} else {
		var err error
		if data, err = os.ReadFile(src); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}
	}
	return compression.Decompress(src, data)
}

// LoadCatalog reads and decodes a catalog document.
func LoadCatalog(ctx context.Context, src string) (*Catalog, error) {
	data, err := ReadSource(ctx, src)
	if err != nil {
		return nil, err
	}

	var raw []catalog.RawApp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{Raw: raw, Apps: make([]catalog.AppDescriptor, len(raw))}
	for i, r := range raw {
		c.Apps[i] = catalog.Sanitize(r)
	}
	return c, nil
}

// LoadMirror reads a mirror document. A local file that does not exist yet is
// an empty mirror.
func LoadMirror(ctx context.Context, src string) (mirror.Snapshot, error) {
	data, err := ReadSource(ctx, src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mirror.Snapshot{}, nil
		}
		return nil, err
	}
	return mirror.Parse(data)
}

// EncodeMirror renders a mirror document with sorted keys.
func EncodeMirror(snap mirror.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = mirror.Snapshot{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to marshal mirror: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMirror writes snap to path, replacing the file atomically. A path
// ending in .gz or .xz is compressed.
func WriteMirror(path string, snap mirror.Snapshot) error {
	data, err := EncodeMirror(snap)
	if err != nil {
		return err
	}
	if data, err = compression.Compress(path, data); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mirror-*.json")
	if err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil { // #nosec G302 - The mirror is a published document
		tmp.Close()
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	return nil
}
