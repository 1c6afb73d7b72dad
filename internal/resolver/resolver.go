// Package resolver turns catalog entries into downloadable descriptors by
// choosing between static links, the mirror snapshot and live release
// listings.
package resolver

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/mirror"
	"github.com/orionstore/orion/internal/releasecache"
)

const (
	// DefaultBatchSize is the number of release listings run concurrently.
	DefaultBatchSize = 5

	// DefaultBatchDelay separates consecutive batches.
	DefaultBatchDelay = 300 * time.Millisecond
)

// Fetcher lists the releases of a repository. *github.Client implements it.
type Fetcher interface {
	ListReleases(ctx context.Context, repo, validator string) (*github.Result, error)
}

// Options configures a Resolver.
type Options struct {
	Fetcher Fetcher
	Cache   *releasecache.Cache

	// BatchSize bounds the listings in flight. Defaults to DefaultBatchSize.
	BatchSize int

	// BatchDelay is the pause between batches. Zero uses DefaultBatchDelay;
	// a negative value disables the pause.
	BatchDelay time.Duration

	// Shuffle randomizes the fetch queue in place. Defaults to rand.Shuffle.
	Shuffle func([]string)

	Logger hclog.Logger
}

// Input is the state of one resolution cycle.
type Input struct {
	Apps   []catalog.AppDescriptor
	Mirror mirror.Snapshot

	// Forced is set for user requested refreshes.
	Forced bool

	// Authenticated is set when the fetcher carries an API token.
	Authenticated bool
}

// LiveAllowed reports whether release listings may be issued this cycle.
// Anonymous background cycles never spend API quota.
func (in Input) LiveAllowed() bool {
	return in.Forced || in.Authenticated
}

// Resolver resolves catalogs.
type Resolver struct {
	fetcher    Fetcher
	cache      *releasecache.Cache
	batchSize  int
	batchDelay time.Duration
	shuffle    func([]string)
	logger     hclog.Logger
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		fetcher:    opts.Fetcher,
		cache:      opts.Cache,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		shuffle:    opts.Shuffle,
		logger:     opts.Logger,
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.batchDelay == 0 {
		r.batchDelay = DefaultBatchDelay
	}
	if r.shuffle == nil {
		r.shuffle = func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		}
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}
	return r
}

// Resolve returns the catalog with every app either untouched, replaced by a
// release matched descriptor, or replaced by the releases page fallback. The
// input slice is not modified.
func (r *Resolver) Resolve(ctx context.Context, in Input) []catalog.AppDescriptor {
	plan := PlanSources(in.Apps, in.Mirror, in.Forced, in.LiveAllowed())

	releases := make(map[string][]github.Release)
	for i, app := range in.Apps {
		if plan.Sources[i] != SourceMirror {
			continue
		}
		repo := app.Repository()
		releases[repo], _ = in.Mirror.Lookup(repo)
	}
	for repo, list := range r.fetchAll(ctx, plan.Queue, in.Forced) {
		releases[repo] = list
	}

	var matched, fallback int
	out := make([]catalog.AppDescriptor, len(in.Apps))
	for i, app := range in.Apps {
		if plan.Sources[i] == SourceNone {
			out[i] = app
			continue
		}

		repo := app.Repository()
		if repo == "" {
			out[i] = app
			continue
		}

		if match, ok := MatchRelease(releases[repo], app.ReleaseKeyword, app.Platform.InstallExtension()); ok {
			out[i] = BuildDescriptor(app, match)
			matched++
			continue
		}

		r.logger.Debug("no matching release, using releases page", "app", app.ID, "repo", repo, "source", plan.Sources[i])
		out[i] = FallbackDescriptor(app, repo)
		fallback++
	}

	r.logger.Info("resolved catalog",
		"apps", len(in.Apps),
		"fetched", len(plan.Queue),
		"matched", matched,
		"fallback", fallback)
	return out
}

// fetchAll runs the queue in shuffled, sequential batches. Listings within a
// batch run concurrently. Repositories that yield nothing are absent from the
// result.
func (r *Resolver) fetchAll(ctx context.Context, queue []string, forced bool) map[string][]github.Release {
	results := make(map[string][]github.Release)
	if len(queue) == 0 || r.fetcher == nil || r.cache == nil {
		return results
	}

	order := append([]string(nil), queue...)
	r.shuffle(order)

	var mu sync.Mutex
	for start := 0; start < len(order); start += r.batchSize {
		if start > 0 && !r.pause(ctx) {
			r.logger.Warn("release fetch interrupted", "remaining", len(order)-start, "error", ctx.Err())
			break
		}

		end := min(start+r.batchSize, len(order))
		var eg errgroup.Group
		eg.SetLimit(r.batchSize)
		for _, repo := range order[start:end] {
			eg.Go(func() error {
				list, ok := r.fetchOne(ctx, repo, forced)
				if !ok {
					return nil
				}
				mu.Lock()
				results[repo] = list
				mu.Unlock()
				return nil
			})
		}
		_ = eg.Wait()
	}
	return results
}

// fetchOne applies the cache contract to a single repository: a fresh entry
// is used as is, anything else is revalidated, and a failed listing falls
// back to the stored payload when there is one.
func (r *Resolver) fetchOne(ctx context.Context, repo string, forced bool) ([]github.Release, bool) {
	lookup := r.cache.Lookup(repo, forced)
	if lookup.State == releasecache.Fresh {
		r.logger.Trace("cache hit", "repo", repo)
		return lookup.Entry.Payload, true
	}

	var validator string
	if lookup.Entry != nil {
		validator = lookup.Entry.Validator
	}

	result, err := r.fetcher.ListReleases(ctx, repo, validator)
	if err != nil {
		if lookup.Entry != nil {
			r.logger.Debug("release listing failed, using cached payload", "repo", repo, "error", err)
			return lookup.Entry.Payload, true
		}
		r.logger.Warn("release listing failed", "repo", repo, "error", err)
		return nil, false
	}

	if result.Status == github.StatusNotModified {
		if lookup.Entry == nil {
			return nil, false
		}
		r.cache.Touch(repo, lookup.Entry)
		r.logger.Trace("releases not modified", "repo", repo)
		return lookup.Entry.Payload, true
	}

	entry := r.cache.Put(repo, result.Validator, result.Releases)
	return entry.Payload, true
}

func (r *Resolver) pause(ctx context.Context) bool {
	if r.batchDelay < 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.batchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
