// SPDX-License-Identifier: MPL-2.0

package discovery

import "github.com/invowk/modhost/pkg/unitmod"

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"
)

const (
	// CodeOriginUnreadable: the candidate location could not be opened.
	CodeOriginUnreadable = "origin_unreadable"
	// CodeManifestMissing: no manifest file was found at the origin root.
	CodeManifestMissing = "manifest_missing"
	// CodeManifestInvalid: the manifest could not be decoded.
	CodeManifestInvalid = "manifest_invalid"
	// CodeDuplicateUnit: a lower version of an already discovered unit was dropped.
	CodeDuplicateUnit = "duplicate_unit"
	// CodeSearchPathMissing: a configured search path does not exist.
	CodeSearchPathMissing = "search_path_missing"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "manifest_invalid").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the candidate location associated with this diagnostic.
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// Fault classifies the diagnostic. Everything discovery reports that drops a
// candidate is a DiscoveryFault.
func (d Diagnostic) Fault() unitmod.FaultKind {
	if d.Severity == SeverityError {
		return unitmod.DiscoveryFault
	}
	return unitmod.FaultNone
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return string(d.Severity) + ": " + d.Message
	}
	return string(d.Severity) + ": " + d.Path + ": " + d.Message
}
