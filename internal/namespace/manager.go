// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/invowk/modhost/pkg/unitcode"
)

type (
	// Manager owns the namespace graph. Create and Remove are serialized;
	// lookups through Get and Namespace.Resolve run concurrently.
	Manager struct {
		root      *Namespace
		registry  cmap.ConcurrentMap[string, *Namespace]
		protected unitcode.Prefixes
		pipeline  Materializer
		logger    *log.Logger

		mu sync.Mutex
	}

	// Option configures a Manager.
	Option func(*Manager)
)

// WithProtectedPrefixes sets the identifier ranges only the root provides.
func WithProtectedPrefixes(p unitcode.Prefixes) Option {
	return func(m *Manager) {
		m.protected = slices.Clone(p)
	}
}

// WithPipeline sets the materializer unit classes pass through.
func WithPipeline(p Materializer) Option {
	return func(m *Manager) {
		m.pipeline = p
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager around root.
func NewManager(root *Namespace, opts ...Option) *Manager {
	m := &Manager{root: root, registry: cmap.New[*Namespace]()}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Default().WithPrefix("namespace")
	}
	return m
}

// Root returns the root namespace.
func (m *Manager) Root() *Namespace { return m.root }

// Protected reports whether id falls under a protected prefix.
func (m *Manager) Protected(id string) bool { return m.protected.Match(id) }

// Create builds the namespace of unit name over source. With no
// dependencies it is parented under the root; otherwise under every
// dependency that has a live namespace, in the given order.
func (m *Manager) Create(name string, source Source, deps []string) (*Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" || name == RootName {
		return nil, fmt.Errorf("create namespace %q: invalid name", name)
	}
	if m.registry.Has(name) {
		return nil, fmt.Errorf("create namespace %s: %w", name, ErrNamespaceExists)
	}
	if source == nil {
		source = StaticSource{}
	}

	var parents []*Namespace
	if len(deps) == 0 {
		parents = []*Namespace{m.root}
	} else {
		for _, dep := range deps {
			if p, ok := m.registry.Get(dep); ok && !slices.Contains(parents, p) {
				parents = append(parents, p)
			}
		}
		if len(parents) == 0 {
			return nil, fmt.Errorf("create namespace %s (dependencies %v): %w", name, deps, ErrNoLiveParent)
		}
	}

	ns := &Namespace{
		name:    name,
		source:  source,
		mgr:     m,
		parents: parents,
		symbols: cmap.New[*Symbol](),
	}
	for _, p := range parents {
		p.edgeMu.Lock()
		p.children = append(p.children, ns)
		p.edgeMu.Unlock()
	}
	m.registry.Set(name, ns)

	m.logger.Debug("namespace created", "unit", name, "parents", parentNames(parents))
	return ns, nil
}

// Remove detaches the namespace of unit name from the graph.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.registry.Pop(name)
	if !ok {
		return fmt.Errorf("remove namespace %s: %w", name, ErrNamespaceNotFound)
	}

	ns.edgeMu.Lock()
	parents, children := ns.parents, ns.children
	ns.parents, ns.children = nil, nil
	ns.edgeMu.Unlock()

	for _, p := range parents {
		p.edgeMu.Lock()
		p.children = slices.DeleteFunc(p.children, func(c *Namespace) bool { return c == ns })
		p.edgeMu.Unlock()
	}
	for _, c := range children {
		c.edgeMu.Lock()
		c.parents = slices.DeleteFunc(c.parents, func(p *Namespace) bool { return p == ns })
		c.edgeMu.Unlock()
		m.logger.Warn("namespace removed while a child is live", "unit", name, "child", c.name)
	}

	m.logger.Debug("namespace removed", "unit", name)
	return nil
}

// Get returns the live namespace of unit name.
func (m *Manager) Get(name string) (*Namespace, bool) {
	return m.registry.Get(name)
}

// Names returns the live unit namespace names in sorted order.
func (m *Manager) Names() []string {
	names := m.registry.Keys()
	slices.Sort(names)
	return names
}

func parentNames(ns []*Namespace) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.name
	}
	return out
}
