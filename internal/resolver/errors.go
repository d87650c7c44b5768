// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/modhost/internal/dag"
)

var (
	// ErrMissingDependencies is wrapped by MissingDependenciesError.
	ErrMissingDependencies = errors.New("missing dependencies")

	// ErrDependencyCycle is wrapped by CycleError.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrDuplicateUnit marks a descriptor whose name already appeared
	// earlier in the same batch.
	ErrDuplicateUnit = errors.New("duplicate unit name in batch")
)

type (
	// MissingDependenciesError records dependency names that are neither in
	// the batch nor active, or that name a unit excluded from the batch.
	MissingDependenciesError struct {
		Unit    string
		Missing []string
	}

	// CycleError records a unit that could not be scheduled because it is
	// part of, or waits on, a dependency cycle.
	CycleError struct {
		Unit string
		// Waiting lists the dependencies still unsatisfied when scheduling stopped.
		Waiting []string
		// Graph is the scheduler's view of every unscheduled unit.
		Graph *dag.CycleError
	}
)

// Error implements the error interface.
func (e *MissingDependenciesError) Error() string {
	return fmt.Sprintf("unit %q: missing dependencies: %s", e.Unit, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMissingDependencies for errors.Is compatibility.
func (e *MissingDependenciesError) Unwrap() error { return ErrMissingDependencies }

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("unit %q: dependency cycle, waiting on: %s", e.Unit, strings.Join(e.Waiting, ", "))
}

// Unwrap exposes both ErrDependencyCycle and the scheduler error.
func (e *CycleError) Unwrap() []error {
	return []error{ErrDependencyCycle, e.Graph}
}
