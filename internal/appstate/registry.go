package appstate

import (
	"sync"

	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/kvstore"
)

// Registry records the version the user last downloaded for each app. Every
// mutation is persisted immediately.
type Registry struct {
	mu    sync.Mutex
	store *kvstore.Store
}

func (r *Registry) load() map[string]string {
	versions := make(map[string]string)
	if !r.store.GetJSON(kvstore.KeyInstalled, &versions) || versions == nil {
		return make(map[string]string)
	}
	return versions
}

// All returns a copy of the registry.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Installed returns the recorded version of app id.
func (r *Registry) Installed(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.load()[id]
	return v, ok
}

// Register records version for app id.
func (r *Registry) Register(id, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.load()
	versions[id] = version
	r.store.SetJSON(kvstore.KeyInstalled, versions)
}

// Forget removes app id from the registry.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.load()
	if _, ok := versions[id]; !ok {
		return
	}
	delete(versions, id)
	r.store.SetJSON(kvstore.KeyInstalled, versions)
}

// HasUpdate reports whether app advertises a newer version than the one
// recorded for it.
func (r *Registry) HasUpdate(app catalog.AppDescriptor) bool {
	installed, _ := r.Installed(app.ID)
	return catalog.HasNewerVersion(installed, app.LatestVersion)
}
