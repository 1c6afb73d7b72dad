package datamanager

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/mirror"
	"github.com/orionstore/orion/internal/resolver"
)

// Defaults of a Builder.
const (
	DefaultConcurrency = 4
	DefaultKeep        = 5
)

// BuildOptions configures a Builder.
type BuildOptions struct {
	Fetcher resolver.Fetcher

	// Concurrency bounds the number of listings in flight.
	Concurrency int

	// Keep is the number of newest releases with installable assets kept
	// per repository, in addition to the newest release of every want.
	Keep int

	Logger hclog.Logger
}

// BuildResult describes a mirror build.
type BuildResult struct {
	Mirror  mirror.Snapshot
	Updated []string
	Kept    []string
	Failed  map[string]error
}

// Builder produces mirror documents from live release listings.
type Builder struct {
	fetcher     resolver.Fetcher
	concurrency int
	keep        int
	logger      hclog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts BuildOptions) *Builder {
	b := &Builder{
		fetcher:     opts.Fetcher,
		concurrency: opts.Concurrency,
		keep:        opts.Keep,
		logger:      opts.Logger,
	}
	if b.concurrency <= 0 {
		b.concurrency = DefaultConcurrency
	}
	if b.keep <= 0 {
		b.keep = DefaultKeep
	}
	if b.logger == nil {
		b.logger = hclog.NewNullLogger()
	}
	return b
}

// Build lists the releases of every target. A repository whose listing
// fails keeps its entry from previous, if any. Entries of previous for
// repositories outside targets are dropped.
func (b *Builder) Build(ctx context.Context, targets []Target, previous mirror.Snapshot) *BuildResult {
	res := &BuildResult{
		Mirror: make(mirror.Snapshot, len(targets)),
		Failed: make(map[string]error),
	}

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(b.concurrency)
	for _, target := range targets {
		repo := target.Repo
		eg.Go(func() error {
			releases, err := b.list(ctx, target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[repo] = err
				if old, ok := previous.Lookup(repo); ok {
					res.Mirror[repo] = old
					res.Kept = append(res.Kept, repo)
				}
				b.logger.Warn("release listing failed", "repo", repo, "error", err)
				return nil
			}
			res.Mirror[repo] = releases
			res.Updated = append(res.Updated, repo)
			b.logger.Debug("listed releases", "repo", repo, "kept", len(releases))
			return nil
		})
	}
	_ = eg.Wait()

	sort.Strings(res.Updated)
	sort.Strings(res.Kept)
	return res
}

// list returns the newest b.keep releases of target with installable assets,
// plus the newest release matching each want, newest first.
func (b *Builder) list(ctx context.Context, target Target) ([]github.Release, error) {
	result, err := b.fetcher.ListReleases(ctx, target.Repo, "")
	if err != nil {
		return nil, err
	}

	candidates := make([]github.Release, 0, len(result.Releases))
	for _, release := range result.Releases {
		release.Assets = installable(release.Assets)
		if len(release.Assets) > 0 {
			candidates = append(candidates, release)
		}
	}

	keep := make([]bool, len(candidates))
	for i := 0; i < len(candidates) && i < b.keep; i++ {
		keep[i] = true
	}
	for _, want := range target.Wants {
		for i := range candidates {
			if _, ok := resolver.MatchRelease(candidates[i:i+1], want.Keyword, want.Ext); ok {
				keep[i] = true
				break
			}
		}
	}

	releases := make([]github.Release, 0, b.keep)
	for i, release := range candidates {
		if keep[i] {
			releases = append(releases, release)
		}
	}
	return releases, nil
}

// excludedAssets marks files published next to packages that are never
// installed.
var excludedAssets = []string{
	"sbom",
	"checksum",
	"provenance",
	"metadata",
	".sig",
	".asc",
	".pem",
	".sha256",
}

// installable keeps the installable packages of a release.
func installable(assets []github.Asset) []github.Asset {
	var out []github.Asset
	for _, asset := range assets {
		name := strings.ToLower(asset.Name)
		if !strings.HasSuffix(name, ".apk") && !strings.HasSuffix(name, ".exe") {
			continue
		}
		excluded := false
		for _, pattern := range excludedAssets {
			if strings.Contains(name, pattern) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, asset)
		}
	}
	return out
}

// Prune removes the entries of snap whose repository is not in repos and
// trims assets that are not installable packages. It returns the removed
// repositories, sorted.
func Prune(snap mirror.Snapshot, repos []string) []string {
	wanted := make(map[string]bool, len(repos))
	for _, repo := range repos {
		wanted[repo] = true
	}

	var removed []string
	for repo, releases := range snap {
		if !wanted[repo] {
			delete(snap, repo)
			removed = append(removed, repo)
			continue
		}
		kept := releases[:0]
		for _, release := range releases {
			release.Assets = installable(release.Assets)
			if len(release.Assets) > 0 {
				kept = append(kept, release)
			}
		}
		snap[repo] = kept
	}
	sort.Strings(removed)
	return removed
}
