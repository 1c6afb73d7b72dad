package kvstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultQuota is the byte budget of a file backend, matching the storage
// budget browsers grant an origin.
const DefaultQuota = 5 * 1024 * 1024

// MemoryBackend keeps values in memory. A positive quota bounds the summed
// size of keys and values.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{
		data:  make(map[string]string),
		quota: quota,
	}
}

func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 && usage(m.data, key, value) > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// FileBackend persists all values as a single JSON object on disk. Every
// mutation rewrites the file through a temporary file and rename.
type FileBackend struct {
	mu    sync.RWMutex
	path  string
	data  map[string]string
	quota int
}

// NewFileBackend opens (or creates) the store file at path. An unreadable or
// corrupt file starts the store empty.
func NewFileBackend(path string, quota int) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { // #nosec G301 - data directory needs standard permissions
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	b := &FileBackend{
		path:  path,
		data:  make(map[string]string),
		quota: quota,
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &b.data); err != nil || b.data == nil {
			b.data = make(map[string]string)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	return b, nil
}

func (b *FileBackend) Get(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quota > 0 && usage(b.data, key, value) > b.quota {
		return ErrQuotaExceeded
	}

	prev, had := b.data[key]
	b.data[key] = value
	if err := b.flush(); err != nil {
		if had {
			b.data[key] = prev
		} else {
			delete(b.data, key)
		}
		return err
	}
	return nil
}

func (b *FileBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	return b.flush()
}

func (b *FileBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]string)
	return b.flush()
}

func (b *FileBackend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// flush writes the map to disk. Callers hold b.mu.
func (b *FileBackend) flush() error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(b.data); err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

// usage returns the byte size of data after setting key to value.
func usage(data map[string]string, key, value string) int {
	total := len(key) + len(value)
	for k, v := range data {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}
