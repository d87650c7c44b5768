// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/dag"
	"github.com/invowk/modhost/pkg/unitmod"
)

type (
	// Result is the outcome of Resolve.
	Result struct {
		// Order lists the schedulable descriptors; every descriptor appears
		// after all of its in-batch dependencies.
		Order []*unitmod.Descriptor
		// Excluded lists descriptors that will not load, in discovery order.
		// Each carries a failure status.
		Excluded []*unitmod.Descriptor
		// Unsatisfied maps excluded unit names to the dependency names that
		// kept them out.
		Unsatisfied map[string][]string
	}

	// Resolver orders descriptor batches.
	Resolver struct {
		logger *log.Logger
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithLogger sets the resolver logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default().WithPrefix("resolver")
	}
	return r
}

// Resolve orders descriptors so that every unit follows its dependencies.
// Dependency names are looked up in the batch first, then with active.
// Descriptors that are already failed are excluded up front. A unit whose
// name repeats an earlier one in the batch, or with an unresolvable
// dependency, a dependency on an excluded unit, or a place in a cycle, is
// marked MissingDependencies and excluded; unrelated units are
// unaffected. Ties are broken by the order of descriptors.
func (r *Resolver) Resolve(descriptors []*unitmod.Descriptor, active func(name string) bool) *Result {
	if active == nil {
		active = func(string) bool { return false }
	}
	res := &Result{Unsatisfied: map[string][]string{}}
	excluded := map[*unitmod.Descriptor]bool{}

	batch := make(map[string]*unitmod.Descriptor, len(descriptors))
	for _, d := range descriptors {
		if !d.Pending() {
			excluded[d] = true
			continue
		}
		if _, dup := batch[d.Name]; dup {
			excluded[d] = true
			d.Fail(unitmod.MissingDependencies, ErrDuplicateUnit)
			r.logger.Warn("unit excluded: duplicate name in batch", "unit", d.Name, "origin", d.Origin)
			continue
		}
		batch[d.Name] = d
	}

	// Step 1: map dependency names onto the batch, dropping active ones.
	requires := make(map[*unitmod.Descriptor][]string, len(batch))
	for _, d := range descriptors {
		if excluded[d] {
			continue
		}
		var missing []string
		for _, dep := range d.Dependencies {
			switch {
			case batch[dep] != nil:
				requires[d] = append(requires[d], dep)
			case active(dep):
			default:
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			r.exclude(res, excluded, d, missing, &MissingDependenciesError{Unit: d.Name, Missing: missing})
		}
	}

	// Step 2: schedule the survivors. Requirements on excluded units are
	// left dangling so they are never satisfied.
	g := dag.New()
	for _, d := range descriptors {
		if !excluded[d] {
			g.AddNode(d.Name)
		}
	}
	for _, d := range descriptors {
		if excluded[d] {
			continue
		}
		for _, dep := range requires[d] {
			if excluded[batch[dep]] {
				g.Require(d.Name, excludedKey(dep))
				continue
			}
			g.Require(d.Name, dep)
		}
	}

	schedule := g.Schedule()
	for _, name := range schedule.Order {
		res.Order = append(res.Order, batch[name])
	}

	// Step 3: everything left waits on a cycle or on an excluded unit.
	var graphErr *dag.CycleError
	errors.As(schedule.Err(), &graphErr)
	for _, name := range schedule.Leftover {
		d := batch[name]
		waiting := make([]string, 0, len(schedule.Unsatisfied[name]))
		var gone []string
		for _, dep := range schedule.Unsatisfied[name] {
			if orig, ok := isExcludedKey(dep); ok {
				gone = append(gone, orig)
				continue
			}
			waiting = append(waiting, dep)
		}
		if len(waiting) == 0 {
			r.exclude(res, excluded, d, gone, &MissingDependenciesError{Unit: name, Missing: gone})
			continue
		}
		r.exclude(res, excluded, d, append(waiting, gone...),
			&CycleError{Unit: name, Waiting: append(waiting, gone...), Graph: graphErr})
	}

	for _, d := range descriptors {
		if excluded[d] {
			res.Excluded = append(res.Excluded, d)
		}
	}
	return res
}

func (r *Resolver) exclude(res *Result, excluded map[*unitmod.Descriptor]bool, d *unitmod.Descriptor,
	names []string, cause error,
) {
	excluded[d] = true
	d.Fail(unitmod.MissingDependencies, cause)
	res.Unsatisfied[d.Name] = slices.Clone(names)
	r.logger.Warn("unit excluded: unsatisfied dependencies", "unit", d.Name, "unsatisfied", names)
}

// Unit names cannot contain ':' so this never collides with a real node.
const excludedPrefix = "excluded:"

func excludedKey(name string) string { return excludedPrefix + name }

func isExcludedKey(key string) (string, bool) {
	return strings.CutPrefix(key, excludedPrefix)
}
