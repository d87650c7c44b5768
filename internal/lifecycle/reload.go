// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"fmt"
	"slices"

	"github.com/invowk/modhost/pkg/unitmod"
)

// Reload unloads name and its transitive dependents, then loads them again
// from their origins as one batch. The merged report covers both halves.
func (m *Manager) Reload(ctx context.Context, name string) (*Report, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.IsActive(name) {
		return nil, fmt.Errorf("reload %s: %w", name, ErrUnitNotActive)
	}
	return m.reload(ctx, []string{name}, nil)
}

// reload tears down the closure of names and loads it back together with
// extra prototypes.
func (m *Manager) reload(ctx context.Context, names []string, extra []unitmod.Prototype) (*Report, error) {
	order := m.teardownOrder(m.closure(names...))

	protos := make([]unitmod.Prototype, 0, len(order)+len(extra))
	for _, n := range slices.Backward(order) {
		if u, ok := m.Lookup(n); ok {
			protos = append(protos, unitmod.Prototype{Origin: u.Descriptor.Origin, Name: n, Enabled: true})
		}
	}
	protos = append(protos, extra...)

	rep := newReport()
	m.teardownAll(ctx, rep, order)
	m.logger.Debug("reloading units", "units", order, "extra", len(extra))

	loaded, err := m.loadBatch(ctx, protos)
	rep.merge(loaded)
	return rep, err
}
