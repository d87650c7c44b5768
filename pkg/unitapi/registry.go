// SPDX-License-Identifier: MPL-2.0

package unitapi

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultRegistry is the registry used by the modhost binary. Built-in units
// register into it during package initialization.
var DefaultRegistry = NewRegistry()

// Registry maps entrypoint identifiers to factories and code modifier
// identifiers to transformer specs. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	entrypoints map[string]Factory
	modifiers   map[string]TransformerSpec
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entrypoints: make(map[string]Factory),
		modifiers:   make(map[string]TransformerSpec),
	}
}

// RegisterEntrypoint binds a factory to an entrypoint identifier.
// Panics if the identifier is empty, the factory is nil, or the identifier
// is already registered.
func (r *Registry) RegisterEntrypoint(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		panic("unitapi: cannot register entrypoint with empty identifier")
	}
	if factory == nil {
		panic(fmt.Sprintf("unitapi: nil factory for entrypoint %q", id))
	}
	if _, exists := r.entrypoints[id]; exists {
		panic(fmt.Sprintf("unitapi: entrypoint %q already registered", id))
	}
	r.entrypoints[id] = factory
}

// RegisterCodeModifier binds a transformer spec to a code modifier
// identifier. Panics on an empty identifier, a nil transform function, or a
// duplicate.
func (r *Registry) RegisterCodeModifier(id string, spec TransformerSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		panic("unitapi: cannot register code modifier with empty identifier")
	}
	if spec.Transform == nil {
		panic(fmt.Sprintf("unitapi: nil transform for code modifier %q", id))
	}
	if _, exists := r.modifiers[id]; exists {
		panic(fmt.Sprintf("unitapi: code modifier %q already registered", id))
	}
	if spec.ID == "" {
		spec.ID = id
	}
	r.modifiers[id] = spec
}

// Entrypoint retrieves the factory for id.
func (r *Registry) Entrypoint(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.entrypoints[id]
	return f, ok
}

// CodeModifier retrieves the transformer spec for id.
func (r *Registry) CodeModifier(id string) (TransformerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.modifiers[id]
	return spec, ok
}

// Entrypoints returns the registered entrypoint identifiers in sorted order.
func (r *Registry) Entrypoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.entrypoints)
}

// CodeModifiers returns the registered code modifier identifiers in sorted order.
func (r *Registry) CodeModifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.modifiers)
}

// RegisterEntrypoint registers a factory in the DefaultRegistry.
func RegisterEntrypoint(id string, factory Factory) {
	DefaultRegistry.RegisterEntrypoint(id, factory)
}

// RegisterCodeModifier registers a transformer spec in the DefaultRegistry.
func RegisterCodeModifier(id string, spec TransformerSpec) {
	DefaultRegistry.RegisterCodeModifier(id, spec)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
