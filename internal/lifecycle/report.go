// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/pkg/unitmod"
)

const (
	StateDiscovered State = iota
	StateOrdered
	StateNamespaceReady
	StateTransformed
	StateInstantiated
	StateExcluded
	StateRolledBack
)

type (
	// State is the furthest step a unit reached in a batch.
	State int

	// UnitResult is the outcome of one discovered unit.
	UnitResult struct {
		Name         string
		DeclaredName string
		Version      string
		Origin       string
		State        State
		Status       unitmod.LoadStatus
		Cause        error
	}

	// Report describes what one operation did.
	Report struct {
		// Units lists every discovered unit in discovery order.
		Units []*UnitResult
		// Loaded lists the units activated by the operation, in load order.
		Loaded []string
		// Unloaded lists the units torn down, in teardown order.
		Unloaded []string
		// PhaseErrors lists hooks that failed; the units stayed active.
		PhaseErrors []PhaseError
		// Diagnostics are the discovery diagnostics.
		Diagnostics []discovery.Diagnostic

		byDesc map[*unitmod.Descriptor]*UnitResult
	}
)

var stateLabels = [...]string{
	StateDiscovered:     "discovered",
	StateOrdered:        "ordered",
	StateNamespaceReady: "namespace-ready",
	StateTransformed:    "transformed",
	StateInstantiated:   "instantiated",
	StateExcluded:       "excluded",
	StateRolledBack:     "rolled-back",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateLabels) {
		return "unknown"
	}
	return stateLabels[s]
}

func newReport() *Report {
	return &Report{byDesc: map[*unitmod.Descriptor]*UnitResult{}}
}

// Failures returns the units excluded with a failure status.
func (r *Report) Failures() []*UnitResult {
	var out []*UnitResult
	for _, u := range r.Units {
		if u.Status.IsFailure() {
			out = append(out, u)
		}
	}
	return out
}

// OK reports whether nothing failed: no exclusions, no phase errors and no
// error diagnostics.
func (r *Report) OK() bool {
	if len(r.Failures()) > 0 || len(r.PhaseErrors) > 0 {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Severity == discovery.SeverityError {
			return false
		}
	}
	return true
}

// Unit returns the result for a unit name.
func (r *Report) Unit(name string) (*UnitResult, bool) {
	for _, u := range r.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// merge appends other's content to r.
func (r *Report) merge(other *Report) {
	if other == nil {
		return
	}
	r.Units = append(r.Units, other.Units...)
	r.Loaded = append(r.Loaded, other.Loaded...)
	r.Unloaded = append(r.Unloaded, other.Unloaded...)
	r.PhaseErrors = append(r.PhaseErrors, other.PhaseErrors...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
	for d, u := range other.byDesc {
		r.byDesc[d] = u
	}
}

func (r *Report) track(d *unitmod.Descriptor) *UnitResult {
	u := &UnitResult{
		Name:         d.Name,
		DeclaredName: d.DeclaredName,
		Version:      d.Version,
		Origin:       d.Origin,
		State:        StateDiscovered,
		Status:       d.Status(),
		Cause:        d.Cause(),
	}
	if d.Status().IsFailure() {
		u.State = StateExcluded
	}
	r.Units = append(r.Units, u)
	r.byDesc[d] = u
	return u
}

func (r *Report) advance(d *unitmod.Descriptor, s State) {
	if u, ok := r.byDesc[d]; ok {
		u.State = s
		u.Status = d.Status()
		u.Cause = d.Cause()
	}
}

// sync copies the final descriptor status into the result.
func (r *Report) sync(d *unitmod.Descriptor) {
	u, ok := r.byDesc[d]
	if !ok {
		return
	}
	u.Status, u.Cause = d.Status(), d.Cause()
	if d.Status().IsFailure() && u.State != StateRolledBack {
		u.State = StateExcluded
	}
}
