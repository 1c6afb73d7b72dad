// Package kvstore provides the persistent key/value store used for settings,
// the catalog snapshot and release cache entries.
//
// Writes are best effort: when the backend reports that its quota is
// exhausted the store wipes everything except a fixed set of essential keys
// and retries the write once. Failures are logged and never returned.
package kvstore

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Well-known keys.
const (
	KeyTheme        = "theme_preference"
	KeyDevUnlocked  = "isDevUnlocked"
	KeyLegend       = "isLegend"
	KeyToken        = "gh_token"
	KeyInstalled    = "installed_apps"
	KeyRemoteMode   = "use_remote_json"
	KeyCachedApps   = "orion_cached_apps_v2"
	KeyCacheVersion = "orion_cache_ver"
)

// PreservedKeys survive a quota eviction.
var PreservedKeys = []string{
	KeyTheme,
	KeyDevUnlocked,
	KeyLegend,
	KeyToken,
	KeyInstalled,
	KeyRemoteMode,
}

var (
	// ErrNotFound is returned by a Backend for a missing key.
	ErrNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned by a Backend when a write does not fit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is the raw persistent storage underneath a Store.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
	Keys() ([]string, error)
}

// Store wraps a Backend with the quota eviction policy.
type Store struct {
	backend Backend
	logger  hclog.Logger

	// mu serialises eviction with other writes so a concurrent Set cannot
	// land between the wipe and the restore of preserved keys.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key. Backend errors are reported as a
// miss.
func (s *Store) Get(key string) (string, bool) {
	v, err := s.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("storage read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// Set stores value under key, evicting non-essential keys if the backend is
// full. It never fails; a write that still does not fit is dropped.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Set(key, value)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		s.logger.Warn("storage write failed", "key", key, "error", err)
		return
	}

	s.logger.Warn("storage quota exceeded, clearing cache", "key", key)
	s.evict()

	if err := s.backend.Set(key, value); err != nil {
		s.logger.Error("storage totally full, dropping write", "key", key, "error", err)
	}
}

// evict wipes the backend and restores the preserved keys.
func (s *Store) evict() {
	saved := make(map[string]string, len(PreservedKeys))
	for _, k := range PreservedKeys {
		if v, err := s.backend.Get(k); err == nil && v != "" {
			saved[k] = v
		}
	}

	if err := s.backend.Clear(); err != nil {
		s.logger.Error("failed to clear storage", "error", err)
	}

	for _, k := range PreservedKeys {
		v, ok := saved[k]
		if !ok {
			continue
		}
		if err := s.backend.Set(k, v); err != nil {
			s.logger.Error("failed to restore preserved key", "key", k, "error", err)
		}
	}
}

// Remove deletes key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Remove(key); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Debug("storage remove failed", "key", key, "error", err)
	}
}

// Clear wipes every key, preserved ones included.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Clear(); err != nil {
		s.logger.Warn("storage clear failed", "error", err)
	}
}

// Keys returns the sorted keys starting with prefix.
func (s *Store) Keys(prefix string) []string {
	all, err := s.backend.Keys()
	if err != nil {
		s.logger.Debug("storage key listing failed", "error", err)
		return nil
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// GetJSON decodes the value under key into v. A corrupt value is removed and
// reported as absent.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Debug("discarding corrupt value", "key", key, "error", err)
		s.Remove(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode value", "key", key, "error", err)
		return
	}
	s.Set(key, string(data))
}
