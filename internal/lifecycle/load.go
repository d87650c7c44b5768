// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitmod"
)

// loading tracks one ordered descriptor through a batch.
type loading struct {
	desc   *unitmod.Descriptor
	origin discovery.Origin
	ns     *namespace.Namespace
	unit   *ActiveUnit
}

// LoadBatch discovers, orders, links and activates prototypes. Per-unit
// failures are recorded on the report and never returned; the only
// errors returned are a *transform.Fault, after rolling the whole batch
// back, and context cancellation during discovery.
func (m *Manager) LoadBatch(ctx context.Context, prototypes []unitmod.Prototype) (*Report, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	return m.loadBatch(ctx, prototypes)
}

func (m *Manager) loadBatch(ctx context.Context, prototypes []unitmod.Prototype) (*Report, error) {
	rep := newReport()

	found, err := m.discoverer.Discover(ctx, prototypes)
	rep.Diagnostics = found.Diagnostics
	for _, d := range found.Descriptors {
		rep.track(d)
	}
	defer m.recordOutcomes(found.Descriptors)
	if err != nil {
		return rep, err
	}

	for _, d := range found.Descriptors {
		if d.Pending() && m.IsActive(d.Name) {
			d.Fail(unitmod.LoadFailed, fmt.Errorf("%s: %w", d.Name, ErrUnitAlreadyActive))
			rep.sync(d)
		}
	}

	// Step 2: order.
	resolved := m.resolver.Resolve(found.Descriptors, m.IsActive)
	for _, d := range resolved.Excluded {
		rep.sync(d)
	}
	batch := make([]*loading, 0, len(resolved.Order))
	for _, d := range resolved.Order {
		rep.advance(d, StateOrdered)
		batch = append(batch, &loading{desc: d, origin: found.Origin(d)})
	}

	b := &batchRun{m: m, rep: rep, failed: map[string]bool{}}

	// Step 3: namespaces.
	for _, l := range batch {
		if b.dependencyFailed(l) {
			continue
		}
		ns, err := m.namespaces.Create(l.desc.Name, l.origin, l.desc.Dependencies)
		if err != nil {
			b.exclude(l, unitmod.FailedNamespaceSetup, err)
			continue
		}
		l.ns = ns
		rep.advance(l.desc, StateNamespaceReady)
	}

	// Step 4: transformers.
	for _, l := range b.alive(batch) {
		if b.dependencyFailed(l) {
			continue
		}
		if err := m.register(l); err != nil {
			b.exclude(l, unitmod.LoadFailed, err)
			continue
		}
		rep.advance(l.desc, StateTransformed)
	}

	// Step 5: instantiation.
	var loaded []*loading
	for _, l := range b.alive(batch) {
		if b.dependencyFailed(l) {
			continue
		}
		inst, err := m.instantiate(l)
		if err != nil {
			if _, fatal := transform.AsFault(err); fatal {
				return m.abort(ctx, rep, batch, err)
			}
			b.exclude(l, unitmod.LoadFailed, err)
			continue
		}
		l.desc.MarkLoaded()
		l.unit = &ActiveUnit{Instance: inst, Descriptor: l.desc, Origin: l.origin, Namespace: l.ns}
		m.activate(l.unit)
		rep.advance(l.desc, StateInstantiated)
		rep.Loaded = append(rep.Loaded, l.desc.Name)
		loaded = append(loaded, l)
		m.logger.Info("unit instantiated", "unit", l.desc.Name, "version", l.desc.Version)
	}

	// Step 6: back-references.
	for _, l := range loaded {
		m.addDependent(l.desc.Name, l.desc.Dependencies)
	}

	// Step 7: init phases with a barrier between phases.
	for _, phase := range initPhases {
		for _, l := range loaded {
			err := phase.call(ctx, l.unit.Instance)
			if err == nil {
				continue
			}
			if _, fatal := transform.AsFault(err); fatal {
				return m.abort(ctx, rep, batch, err)
			}
			m.phaseFailed(rep, l.desc.Name, phase, err)
		}
	}

	return rep, nil
}

// batchRun holds the per-batch exclusion bookkeeping.
type batchRun struct {
	m      *Manager
	rep    *Report
	failed map[string]bool
}

// alive returns the members that still have a namespace and no verdict.
func (b *batchRun) alive(batch []*loading) []*loading {
	var out []*loading
	for _, l := range batch {
		if l.ns != nil && l.desc.Pending() {
			out = append(out, l)
		}
	}
	return out
}

// exclude fails l, releasing whatever it registered so far.
func (b *batchRun) exclude(l *loading, status unitmod.LoadStatus, cause error) {
	if l.ns != nil {
		b.m.release(l.desc.Name)
		l.ns = nil
	}
	l.desc.Fail(status, cause)
	b.failed[l.desc.Name] = true
	b.rep.sync(l.desc)
	b.m.logger.Warn("unit excluded", "unit", l.desc.Name, "status", status, "error", cause)
}

// dependencyFailed excludes l if one of its batch dependencies was
// excluded after resolution.
func (b *batchRun) dependencyFailed(l *loading) bool {
	for _, dep := range l.desc.Dependencies {
		if b.failed[dep] {
			b.exclude(l, unitmod.MissingDependencies, fmt.Errorf("%s: %w", dep, ErrDependencyFailed))
			return true
		}
	}
	return false
}

// register adds the access rules, mixins and code modifiers of l.
func (m *Manager) register(l *loading) error {
	d := l.desc
	for _, path := range []string{d.AccessWidener, d.ReversibleAccessSetter} {
		if path == "" {
			continue
		}
		data, err := m.readUnitFile(l, path)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: path, Err: err}
		}
		set, err := transform.ParseAccessRules(bytes.NewReader(data), path)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: path, Err: err}
		}
		m.pipeline.AddAccessRules(d.Name, set)
	}

	if d.MixinConfig != "" {
		data, err := m.readUnitFile(l, d.MixinConfig)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: d.MixinConfig, Err: err}
		}
		cfg, err := transform.ParseMixinConfig(data, d.MixinConfig)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: d.MixinConfig, Err: err}
		}
		entries, err := cfg.Entries(d.Name)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: d.MixinConfig, Err: err}
		}
		for _, e := range entries {
			if err := m.pipeline.Add(e); err != nil {
				return &RegistrationError{Unit: d.Name, What: d.MixinConfig, Err: err}
			}
		}
	}

	for _, id := range d.CodeModifiers {
		spec, ok := m.registry.CodeModifier(id)
		if !ok {
			return &RegistrationError{Unit: d.Name, What: id, Err: ErrUnknownCodeModifier}
		}
		e, err := transform.FromSpec(d.Name, spec)
		if err != nil {
			return &RegistrationError{Unit: d.Name, What: id, Err: err}
		}
		if err := m.pipeline.Add(e); err != nil {
			return &RegistrationError{Unit: d.Name, What: id, Err: err}
		}
	}
	return nil
}

func (m *Manager) readUnitFile(l *loading, path string) ([]byte, error) {
	if l.origin == nil {
		return nil, fmt.Errorf("unit %s has no origin", l.desc.Name)
	}
	return l.origin.ReadFile(path)
}

// instantiate resolves the entrypoint through the unit namespace and calls
// its registered factory. A transformation fault is returned as is so the
// caller can abort the batch.
func (m *Manager) instantiate(l *loading) (unitapi.Unit, error) {
	d := l.desc
	fail := func(err error) error {
		return &InstantiationError{Unit: d.Name, Entrypoint: d.Entrypoint, Err: err}
	}

	sym, err := l.ns.Resolve(d.Entrypoint)
	if err != nil {
		if _, fatal := transform.AsFault(err); fatal {
			return nil, err
		}
		return nil, fail(fmt.Errorf("%w: %w", ErrEntrypointNotFound, err))
	}
	cls, err := sym.Class()
	if err != nil {
		return nil, fail(err)
	}
	if !cls.Implements(unitapi.CapabilityInterface) {
		return nil, fail(fmt.Errorf("%w: %s does not list %s", ErrWrongShape, cls.Name, unitapi.CapabilityInterface))
	}
	factory, ok := m.registry.Entrypoint(d.Entrypoint)
	if !ok {
		return nil, fail(ErrNoFactory)
	}

	setup := &unitSetup{desc: d, ns: l.ns, pipeline: m.pipeline, logger: m.logger.WithPrefix(d.Name)}
	inst, err := callFactory(factory, setup)
	switch {
	case err != nil:
		if _, fatal := transform.AsFault(err); fatal {
			return nil, err
		}
		return nil, fail(err)
	case inst == nil:
		return nil, fail(ErrNilInstance)
	}
	return inst, nil
}

func callFactory(factory unitapi.Factory, setup unitapi.Setup) (u unitapi.Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			u, err = nil, fmt.Errorf("%w: %v", ErrFactoryPanic, r)
		}
	}()
	return factory(setup)
}

// abort rolls the batch back after a transformation fault.
func (m *Manager) abort(ctx context.Context, rep *Report, batch []*loading, fault error) (*Report, error) {
	m.metrics.fault()
	m.logger.Error("transformation fault, rolling back batch", "error", fault)

	for _, l := range slices.Backward(batch) {
		switch {
		case l.unit != nil:
			m.teardown(ctx, rep, l.unit)
			rep.advance(l.desc, StateRolledBack)
		case l.ns != nil:
			m.release(l.desc.Name)
			l.ns = nil
			l.desc.Fail(unitmod.LoadFailed, fault)
			rep.sync(l.desc)
		}
	}
	rep.Loaded = nil
	return rep, fault
}

// release removes everything a unit registered outside the active map.
func (m *Manager) release(name string) {
	m.pipeline.RemoveOwner(name)
	if err := m.namespaces.Remove(name); err != nil && !errors.Is(err, namespace.ErrNamespaceNotFound) {
		m.logger.Warn("namespace removal failed", "unit", name, "error", err)
	}
}

func (m *Manager) phaseFailed(rep *Report, unit string, phase Phase, err error) {
	rep.PhaseErrors = append(rep.PhaseErrors, PhaseError{Unit: unit, Phase: phase, Err: err})
	m.metrics.phaseError(phase)
	m.logger.Error("lifecycle hook failed", "unit", unit, "phase", phase, "error", err)
}

func (m *Manager) recordOutcomes(ds []*unitmod.Descriptor) {
	for _, d := range ds {
		m.metrics.outcome(d.Status().String())
	}
}
