// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"fmt"
	"slices"

	"github.com/invowk/modhost/internal/dag"
)

// Unload tears down name and everything that transitively depends on it,
// dependents first. Hook failures are recorded on the report.
func (m *Manager) Unload(ctx context.Context, name string) (*Report, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.IsActive(name) {
		return nil, fmt.Errorf("unload %s: %w", name, ErrUnitNotActive)
	}
	rep := newReport()
	m.teardownAll(ctx, rep, m.teardownOrder(m.closure(name)))
	return rep, nil
}

// Shutdown tears down every active unit, dependents first. Hooks run even
// when ctx is already cancelled.
func (m *Manager) Shutdown(ctx context.Context) *Report {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	rep := newReport()
	m.teardownAll(context.WithoutCancel(ctx), rep, m.teardownOrder(m.Active()))
	m.logger.Info("all units unloaded", "count", len(rep.Unloaded))
	return rep
}

func (m *Manager) teardownAll(ctx context.Context, rep *Report, order []string) {
	for _, name := range order {
		if u, ok := m.Lookup(name); ok {
			m.teardown(ctx, rep, u)
		}
	}
}

// teardown runs the terminate hooks of u and releases everything it owns.
func (m *Manager) teardown(ctx context.Context, rep *Report, u *ActiveUnit) {
	name := u.Descriptor.Name
	for _, phase := range terminatePhases {
		if err := phase.call(ctx, u.Instance); err != nil {
			m.phaseFailed(rep, name, phase, err)
		}
	}
	m.release(name)
	m.deactivate(name)
	rep.Unloaded = append(rep.Unloaded, name)
	m.metrics.unloaded()
	m.logger.Info("unit unloaded", "unit", name)
}

// closure returns name followed by every active unit that transitively
// depends on it.
func (m *Manager) closure(names ...string) []string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	seen := map[string]bool{}
	var out []string
	queue := slices.Clone(names)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		u, ok := m.active[n]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		queue = append(queue, u.dependents...)
	}
	return out
}

// teardownOrder orders names so that every unit precedes its dependencies.
func (m *Manager) teardownOrder(names []string) []string {
	g := dag.New()
	for _, n := range names {
		g.AddNode(n)
	}
	m.activeMu.RLock()
	for _, n := range names {
		u, ok := m.active[n]
		if !ok {
			continue
		}
		for _, dep := range u.Descriptor.Dependencies {
			if slices.Contains(names, dep) {
				g.Require(n, dep)
			}
		}
	}
	m.activeMu.RUnlock()

	order, err := g.TopologicalSort()
	if err != nil {
		// Active units never form a cycle; fall back to the collected order.
		m.logger.Warn("unexpected cycle among active units", "error", err)
		order = slices.Clone(names)
	}
	slices.Reverse(order)
	return order
}
