// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrUnitNotActive is returned by Unload and Reload for unknown names.
	ErrUnitNotActive = errors.New("unit is not active")
	// ErrUnitAlreadyActive excludes a batch member whose name is live.
	ErrUnitAlreadyActive = errors.New("unit is already active")

	// ErrEntrypointNotFound: the entrypoint class does not resolve.
	ErrEntrypointNotFound = errors.New("entrypoint class not found")
	// ErrWrongShape: the entrypoint class does not declare the unit capability.
	ErrWrongShape = errors.New("entrypoint does not implement the unit capability")
	// ErrNoFactory: no factory is registered for the entrypoint.
	ErrNoFactory = errors.New("no factory registered for entrypoint")
	// ErrNilInstance: the factory returned neither a unit nor an error.
	ErrNilInstance = errors.New("factory returned a nil unit")
	// ErrFactoryPanic: the factory panicked.
	ErrFactoryPanic = errors.New("factory panicked")

	// ErrUnknownCodeModifier: a manifest names a code modifier nobody registered.
	ErrUnknownCodeModifier = errors.New("unknown code modifier")
	// ErrDependencyFailed: an in-batch dependency was excluded after resolution.
	ErrDependencyFailed = errors.New("dependency failed to load")
)

type (
	// InstantiationError wraps an instantiation failure of one unit.
	InstantiationError struct {
		Unit       string
		Entrypoint string
		Err        error
	}

	// RegistrationError wraps a transformer registration failure of one unit.
	RegistrationError struct {
		Unit string
		// What names the failing piece: a rule file path or code modifier id.
		What string
		Err  error
	}

	// PhaseError records a hook that failed or panicked.
	PhaseError struct {
		Unit  string
		Phase Phase
		Err   error
	}
)

// Error implements the error interface.
func (e *InstantiationError) Error() string {
	return fmt.Sprintf("unit %s: instantiate %s: %v", e.Unit, e.Entrypoint, e.Err)
}

// Unwrap returns the cause.
func (e *InstantiationError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("unit %s: register %s: %v", e.Unit, e.What, e.Err)
}

// Unwrap returns the cause.
func (e *RegistrationError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("unit %s: %s: %v", e.Unit, e.Phase, e.Err)
}

// Unwrap returns the cause.
func (e *PhaseError) Unwrap() error { return e.Err }
