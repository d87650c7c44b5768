// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"slices"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/resolver"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitmod"
)

// ErrMissingComponent is returned by New when a required component is nil.
var ErrMissingComponent = errors.New("lifecycle: missing required component")

type (
	// Options are the components a Manager drives. Namespaces and Pipeline
	// are required; the others default.
	Options struct {
		Namespaces *namespace.Manager
		Pipeline   *transform.Pipeline
		Registry   *unitapi.Registry
		Discoverer *discovery.Discoverer
		Resolver   *resolver.Resolver
		Logger     *log.Logger
		Metrics    *Metrics
		// RetryPolicy builds the backoff Refresh uses while a changed
		// location is unreadable. Defaults to DefaultRetryPolicy.
		RetryPolicy func() backoff.BackOff
	}

	// ActiveUnit is a live unit.
	ActiveUnit struct {
		Instance   unitapi.Unit
		Descriptor *unitmod.Descriptor
		Origin     discovery.Origin
		Namespace  *namespace.Namespace

		// dependents is guarded by Manager.activeMu.
		dependents []string
	}

	// Manager owns the active units.
	Manager struct {
		namespaces *namespace.Manager
		pipeline   *transform.Pipeline
		registry   *unitapi.Registry
		discoverer *discovery.Discoverer
		resolver   *resolver.Resolver
		logger     *log.Logger
		metrics    *Metrics
		retry      func() backoff.BackOff

		// opMu serializes LoadBatch, Unload, Reload, Refresh and Shutdown.
		opMu sync.Mutex

		activeMu sync.RWMutex
		active   map[string]*ActiveUnit
	}
)

// New creates a Manager.
func New(opts Options) (*Manager, error) {
	if opts.Namespaces == nil || opts.Pipeline == nil {
		return nil, ErrMissingComponent
	}
	m := &Manager{
		namespaces: opts.Namespaces,
		pipeline:   opts.Pipeline,
		registry:   opts.Registry,
		discoverer: opts.Discoverer,
		resolver:   opts.Resolver,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		retry:      opts.RetryPolicy,
		active:     map[string]*ActiveUnit{},
	}
	if m.logger == nil {
		m.logger = log.Default().WithPrefix("lifecycle")
	}
	if m.registry == nil {
		m.registry = unitapi.DefaultRegistry
	}
	if m.discoverer == nil {
		m.discoverer = discovery.New(discovery.WithLogger(m.logger.WithPrefix("discovery")))
	}
	if m.resolver == nil {
		m.resolver = resolver.New(resolver.WithLogger(m.logger.WithPrefix("resolver")))
	}
	return m, nil
}

// Active returns the names of the active units in sorted order.
func (m *Manager) Active() []string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsActive reports whether a unit named name is active.
func (m *Manager) IsActive(name string) bool {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	_, ok := m.active[name]
	return ok
}

// Lookup returns the active unit named name.
func (m *Manager) Lookup(name string) (*ActiveUnit, bool) {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	u, ok := m.active[name]
	return u, ok
}

// Dependents returns the direct dependents recorded for name.
func (m *Manager) Dependents(name string) []string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	if u, ok := m.active[name]; ok {
		return slices.Clone(u.dependents)
	}
	return nil
}

// Namespaces returns the namespace manager.
func (m *Manager) Namespaces() *namespace.Manager { return m.namespaces }

func (m *Manager) activate(u *ActiveUnit) {
	m.activeMu.Lock()
	m.active[u.Descriptor.Name] = u
	n := len(m.active)
	m.activeMu.Unlock()
	m.metrics.setActive(n)
}

func (m *Manager) deactivate(name string) {
	m.activeMu.Lock()
	u, ok := m.active[name]
	if ok {
		delete(m.active, name)
		for _, dep := range u.Descriptor.Dependencies {
			if d, ok := m.active[dep]; ok {
				d.dependents = slices.DeleteFunc(d.dependents, func(s string) bool { return s == name })
			}
		}
	}
	n := len(m.active)
	m.activeMu.Unlock()
	m.metrics.setActive(n)
}

// addDependent records dependent as a back-reference on each active dependency.
func (m *Manager) addDependent(dependent string, deps []string) {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	for _, dep := range deps {
		if d, ok := m.active[dep]; ok && !slices.Contains(d.dependents, dependent) {
			d.dependents = append(d.dependents, dependent)
		}
	}
}
