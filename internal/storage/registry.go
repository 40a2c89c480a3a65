// Package storage provides the plugin registry that maps a config
// document's storage.plugin name to a concrete schema.Capability
// constructor. The concrete backends themselves (sqlbackend, memstore)
// are collaborators the registry dispatches to; core packages never
// import them directly.
package storage

import (
	"fmt"
	"sync"

	"github.com/mcmcgrath13/delf/internal/schema"
)

// Factory builds a schema.Capability bound to the given connection url.
type Factory func(url string) (schema.Capability, error)

// Registry holds every storage plugin known to a delf process. Backend
// packages register themselves from an init() func, the same way
// database/sql drivers register themselves with sql.Register.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Factory
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Factory)}
}

// DefaultRegistry is the process-wide registry backend packages
// register themselves into from an init() func, mirroring
// database/sql's package-level driver registry. The delf and delfd
// commands pass it to schemabuild.Build, which builds each configured
// storage capability from it.
var DefaultRegistry = NewRegistry()

// Register adds a plugin factory under name. Re-registering a name
// overwrites the previous factory, matching database/sql.Register's
// "last one wins" semantics for deliberate test overrides.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = factory
}

// Build looks up plugin and invokes its factory with url.
func (r *Registry) Build(plugin, url string) (schema.Capability, error) {
	r.mu.RLock()
	factory, ok := r.plugins[plugin]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown plugin %q", plugin)
	}
	return factory(url)
}

// Plugins returns the names of every registered plugin.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}
