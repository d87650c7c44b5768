// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Pending is the status of a descriptor that has not reached a verdict.
	Pending LoadStatus = iota
	// InvalidName means the manifest name is missing or malformed.
	InvalidName
	// NoEntrypoint means the manifest does not declare an entrypoint.
	NoEntrypoint
	// MissingDependencies means a hard dependency is absent or part of a cycle.
	MissingDependencies
	// FailedNamespaceSetup means no namespace could be built for the unit.
	FailedNamespaceSetup
	// LoadFailed means transformer registration or instantiation failed.
	LoadFailed
	// LoadSuccess is the only status that permits activation.
	LoadSuccess
)

const (
	// FaultNone is reported for Pending and LoadSuccess.
	FaultNone FaultKind = iota
	// DiscoveryFault: a candidate could not be read. Skipped, non-fatal.
	DiscoveryFault
	// DescriptorFault: InvalidName or NoEntrypoint. Excluded, non-fatal.
	DescriptorFault
	// DependencyFault: MissingDependencies or a cycle. Excluded, non-fatal.
	DependencyFault
	// NamespaceFault: FailedNamespaceSetup. Excluded, non-fatal.
	NamespaceFault
	// InstantiationFault: LoadFailed. Excluded, non-fatal.
	InstantiationFault
	// TransformationFault: a transformer failed. Fatal to the whole batch.
	TransformationFault
)

// ErrUnknownFaultKind is returned by ParseFaultKind for unrecognized names.
var ErrUnknownFaultKind = errors.New("unknown fault kind")

type (
	// LoadStatus records why a unit did or did not become active.
	LoadStatus int

	// FaultKind classifies failures for reporting.
	FaultKind int
)

var statusLabels = [...]string{
	Pending:              "Pending",
	InvalidName:          "InvalidName",
	NoEntrypoint:         "NoEntrypoint",
	MissingDependencies:  "MissingDependencies",
	FailedNamespaceSetup: "FailedNamespaceSetup",
	LoadFailed:           "LoadFailed",
	LoadSuccess:          "LoadSuccess",
}

var faultLabels = [...]string{
	FaultNone:           "none",
	DiscoveryFault:      "discovery",
	DescriptorFault:     "descriptor",
	DependencyFault:     "dependency",
	NamespaceFault:      "namespace",
	InstantiationFault:  "instantiation",
	TransformationFault: "transformation",
}

// String returns the status label.
func (s LoadStatus) String() string {
	if s < 0 || int(s) >= len(statusLabels) {
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
	return statusLabels[s]
}

// IsFailure reports whether s is one of the terminal exclusion statuses.
func (s LoadStatus) IsFailure() bool {
	return s > Pending && s < LoadSuccess
}

// Fault maps the status onto the error taxonomy.
func (s LoadStatus) Fault() FaultKind {
	switch s {
	case InvalidName, NoEntrypoint:
		return DescriptorFault
	case MissingDependencies:
		return DependencyFault
	case FailedNamespaceSetup:
		return NamespaceFault
	case LoadFailed:
		return InstantiationFault
	default:
		return FaultNone
	}
}

// String returns the lowercase fault name.
func (k FaultKind) String() string {
	if k < 0 || int(k) >= len(faultLabels) {
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
	return faultLabels[k]
}

// Fatal reports whether a fault of this kind must stop the batch.
func (k FaultKind) Fatal() bool {
	return k == TransformationFault
}

// ParseFaultKind accepts the lowercase fault name, optionally suffixed
// with "fault" ("dependency", "DependencyFault").
func ParseFaultKind(s string) (FaultKind, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "fault")
	for i, label := range faultLabels {
		if FaultKind(i) != FaultNone && label == name {
			return FaultKind(i), nil
		}
	}
	return FaultNone, fmt.Errorf("%w: %q", ErrUnknownFaultKind, s)
}

// FaultKinds returns every reportable fault kind in taxonomy order.
func FaultKinds() []FaultKind {
	return []FaultKind{
		DiscoveryFault,
		DescriptorFault,
		DependencyFault,
		NamespaceFault,
		InstantiationFault,
		TransformationFault,
	}
}
