// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidUnitName is the sentinel wrapped by InvalidUnitNameError.
	ErrInvalidUnitName = errors.New("invalid unit name")

	unitNamePattern = regexp.MustCompile(`^[A-Za-z][-_A-Za-z0-9]+$`)
)

type (
	// UnitName is a validated unit identifier as declared in a manifest.
	UnitName string

	// InvalidUnitNameError is returned when a UnitName does not match the
	// required format. It wraps ErrInvalidUnitName.
	InvalidUnitNameError struct {
		Value UnitName
	}
)

// String returns the string representation of the UnitName.
func (n UnitName) String() string { return string(n) }

// Validate returns nil if the name starts with a letter and is followed by
// at least one letter, digit, '-' or '_'.
func (n UnitName) Validate() error {
	if !unitNamePattern.MatchString(string(n)) {
		return &InvalidUnitNameError{Value: n}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidUnitNameError) Error() string {
	if e.Value == "" {
		return "invalid unit name: name is missing"
	}
	return fmt.Sprintf(
		"invalid unit name %q: must start with a letter followed by letters, digits, '-' or '_'",
		string(e.Value),
	)
}

// Unwrap returns ErrInvalidUnitName for errors.Is compatibility.
func (e *InvalidUnitNameError) Unwrap() error {
	return ErrInvalidUnitName
}
