// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/pkg/unitcode"
)

type (
	// Pipeline rewrites class documents on their way into a namespace.
	// Apply may be called concurrently; entry iteration and removal happen
	// under one pipeline-wide lock, so at most one transformer runs at a
	// time. A transformer must not call back into the pipeline: see
	// CheckReentry.
	Pipeline struct {
		mu      sync.Mutex
		entries []*registered
		seq     uint64
		// running is the entry being invoked, set only while mu is held.
		running atomic.Pointer[registered]

		rulesMu sync.RWMutex
		rules   []ownedRules

		protected unitcode.Prefixes
		logger    *log.Logger
		metrics   *Metrics
	}

	ownedRules struct {
		owner string
		set   *AccessRuleSet
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// WithProtectedPrefixes sets the identifier ranges Apply never touches.
func WithProtectedPrefixes(p unitcode.Prefixes) Option {
	return func(pl *Pipeline) {
		pl.protected = slices.Clone(p)
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *log.Logger) Option {
	return func(pl *Pipeline) {
		pl.logger = logger
	}
}

// WithMetrics sets the collectors updated by the pipeline.
func WithMetrics(m *Metrics) Option {
	return func(pl *Pipeline) {
		pl.metrics = m
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Default().WithPrefix("pipeline")
	}
	return p
}

// Add registers an entry. Entries are kept sorted by priority; equal
// priorities keep registration order.
func (p *Pipeline) Add(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Target == nil {
		e.Target = Any
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.entries = append(p.entries, &registered{Entry: e, seq: p.seq})
	slices.SortStableFunc(p.entries, func(a, b *registered) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	p.metrics.setEntries(len(p.entries))
	p.logger.Debug("transformer registered", "entry", e.ID, "owner", e.Owner, "priority", e.Priority)
	return nil
}

// AddAccessRules registers an access rule set owned by owner.
func (p *Pipeline) AddAccessRules(owner string, set *AccessRuleSet) {
	p.rulesMu.Lock()
	defer p.rulesMu.Unlock()

	p.rules = append(p.rules, ownedRules{owner: owner, set: set})
}

// RemoveOwner drops every entry and access rule set registered by owner
// and returns how many were removed.
func (p *Pipeline) RemoveOwner(owner string) int {
	p.mu.Lock()
	before := len(p.entries)
	p.entries = slices.DeleteFunc(p.entries, func(r *registered) bool { return r.Owner == owner })
	removed := before - len(p.entries)
	p.metrics.setEntries(len(p.entries))
	p.mu.Unlock()

	p.rulesMu.Lock()
	before = len(p.rules)
	p.rules = slices.DeleteFunc(p.rules, func(o ownedRules) bool { return o.owner == owner })
	removed += before - len(p.rules)
	p.rulesMu.Unlock()

	return removed
}

// Entries returns a snapshot of the registered entries in execution order.
func (p *Pipeline) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Entry, len(p.entries))
	for i, r := range p.entries {
		out[i] = r.Entry
	}
	return out
}

// Protected reports whether id is in a protected range.
func (p *Pipeline) Protected(id string) bool {
	return p.protected.Match(id)
}

// Apply runs class id through the pipeline. raw is returned unchanged when
// id is protected or nothing modified the class; otherwise the class is
// re-encoded. Any transformer error or panic aborts the call with a *Fault.
func (p *Pipeline) Apply(id string, raw []byte) (out []byte, modified bool, err error) {
	start := time.Now()
	if p.protected.Match(id) {
		p.metrics.observe(OutcomeSkipped, start)
		return raw, false, nil
	}
	defer func() {
		switch {
		case err != nil:
			p.metrics.observe(OutcomeFault, start)
		case modified:
			p.metrics.observe(OutcomeModified, start)
		default:
			p.metrics.observe(OutcomeUnchanged, start)
		}
	}()

	var cls *unitcode.Class
	decode := func() error {
		if cls != nil {
			return nil
		}
		c, err := unitcode.DecodeClass(raw)
		if err != nil {
			return &Fault{Class: id, Err: err}
		}
		cls = c
		return nil
	}

	for _, set := range p.rulesFor(id) {
		if err := decode(); err != nil {
			return nil, false, err
		}
		set.Apply(cls)
		modified = true
	}

	if err := p.runEntries(id, decode, &cls, &modified); err != nil {
		return nil, false, err
	}

	if !modified {
		return raw, false, nil
	}
	data, err := unitcode.EncodeClass(cls)
	if err != nil {
		return nil, false, &Fault{Class: id, Err: err}
	}
	return data, true, nil
}

func (p *Pipeline) runEntries(id string, decode func() error, cls **unitcode.Class, modified *bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(p.entries); {
		e := p.entries[i]
		if !e.Target.Match(id) {
			i++
			continue
		}
		if err := decode(); err != nil {
			return err
		}

		p.running.Store(e)
		mod, valid, err := invoke(e, *cls)
		p.running.Store(nil)
		if err != nil {
			p.logger.Error("transformer failed", "entry", e.ID, "owner", e.Owner, "class", id, "error", err)
			return err
		}
		*modified = *modified || mod

		if !valid {
			p.entries = slices.Delete(p.entries, i, i+1)
			p.metrics.expired()
			p.metrics.setEntries(len(p.entries))
			p.logger.Debug("transformer expired", "entry", e.ID, "owner", e.Owner)
			continue
		}
		i++
	}
	return nil
}

// CheckReentry returns a *Fault wrapping ErrReentrant when a transformer
// owned by owner is running. Callers acting for a unit check it before
// resolving a class or registering entries, either of which would wait on
// the lock the running transformer holds.
func (p *Pipeline) CheckReentry(owner, id string) error {
	e := p.running.Load()
	if e == nil || e.Owner != owner {
		return nil
	}
	return &Fault{Class: id, Entry: e.ID, Owner: e.Owner, Err: ErrReentrant}
}

func (p *Pipeline) rulesFor(id string) []*AccessRuleSet {
	p.rulesMu.RLock()
	defer p.rulesMu.RUnlock()

	var sets []*AccessRuleSet
	for _, o := range p.rules {
		if o.set.Targets(id) {
			sets = append(sets, o.set)
		}
	}
	return sets
}

func invoke(e *registered, cls *unitcode.Class) (modified, valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Class: cls.Name, Entry: e.ID, Owner: e.Owner, Panic: r}
		}
	}()

	modified, valid, err = e.Transform(cls)
	if err != nil {
		return false, false, &Fault{Class: cls.Name, Entry: e.ID, Owner: e.Owner, Err: err}
	}
	return modified, valid, nil
}
