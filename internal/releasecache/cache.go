// Package releasecache keeps the last known release list of every repository
// together with the validator needed to revalidate it cheaply.
package releasecache

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/orionstore/orion/internal/github"
	"github.com/orionstore/orion/internal/kvstore"
)

// KeyPrefix prefixes the storage key of every entry.
const KeyPrefix = "gh_v3_"

const (
	// AuthenticatedTTL applies when an API token is configured. The larger
	// authenticated quota affords more frequent revalidation.
	AuthenticatedTTL = 10 * time.Minute

	// AnonymousTTL applies without a token, keeping anonymous quota use low.
	AnonymousTTL = 60 * time.Minute
)

// TTL returns the freshness window for the given authentication state.
func TTL(authenticated bool) time.Duration {
	if authenticated {
		return AuthenticatedTTL
	}
	return AnonymousTTL
}

// Entry is the persisted state of one repository.
type Entry struct {
	// Timestamp is the last successful or revalidated fetch, in unix millis.
	Timestamp int64            `json:"timestamp"`
	Validator string           `json:"validator,omitempty"`
	Payload   []github.Release `json:"payload"`
}

// FetchedAt returns Timestamp as a time.
func (e *Entry) FetchedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// State classifies an entry for a fetch decision.
type State int

const (
	// Miss means there is no entry; the caller must fetch.
	Miss State = iota
	// Fresh means the entry can be used without a network call.
	Fresh
	// Stale means the entry has expired or a refresh was forced; the caller
	// revalidates with the stored validator.
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Lookup is the result of consulting the cache for a repository.
type Lookup struct {
	State State
	Entry *Entry
}

// Options configures a Cache.
type Options struct {
	// Authenticated selects the TTL.
	Authenticated bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	Logger hclog.Logger
}

// Cache reads and writes entries in a kvstore.
type Cache struct {
	store  *kvstore.Store
	ttl    time.Duration
	now    func() time.Time
	logger hclog.Logger
}

// New creates a Cache backed by store.
func New(store *kvstore.Store, opts Options) *Cache {
	c := &Cache{
		store:  store,
		ttl:    TTL(opts.Authenticated),
		now:    opts.Clock,
		logger: opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	return c
}

// TTL returns the freshness window of this cache.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the stored entry for repo. Corrupt entries are discarded.
func (c *Cache) Get(repo string) (*Entry, bool) {
	var entry Entry
	if !c.store.GetJSON(KeyPrefix+repo, &entry) {
		return nil, false
	}
	return &entry, true
}

// Lookup classifies the entry of repo. A forced lookup never reports Fresh.
func (c *Cache) Lookup(repo string, forced bool) Lookup {
	entry, ok := c.Get(repo)
	if !ok {
		return Lookup{State: Miss}
	}
	if !forced && c.now().Sub(entry.FetchedAt()) < c.ttl {
		return Lookup{State: Fresh, Entry: entry}
	}
	return Lookup{State: Stale, Entry: entry}
}

// Touch slides the freshness window of entry forward after the server
// confirmed it is unchanged. Payload and validator are kept.
func (c *Cache) Touch(repo string, entry *Entry) {
	updated := *entry
	updated.Timestamp = c.now().UnixMilli()
	c.store.SetJSON(KeyPrefix+repo, &updated)
	*entry = updated
}

// Put overwrites the entry of repo with a freshly fetched payload.
func (c *Cache) Put(repo, validator string, releases []github.Release) *Entry {
	if releases == nil {
		releases = []github.Release{}
	}
	entry := &Entry{
		Timestamp: c.now().UnixMilli(),
		Validator: validator,
		Payload:   releases,
	}
	c.store.SetJSON(KeyPrefix+repo, entry)
	c.logger.Debug("cached releases", "repo", repo, "count", len(releases))
	return entry
}

// Repositories lists the repositories that currently have an entry.
func (c *Cache) Repositories() []string {
	keys := c.store.Keys(KeyPrefix)
	repos := make([]string, 0, len(keys))
	for _, k := range keys {
		repos = append(repos, k[len(KeyPrefix):])
	}
	return repos
}
