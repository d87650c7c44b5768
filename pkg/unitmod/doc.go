// SPDX-License-Identifier: MPL-2.0

// Package unitmod is the descriptor store for modhost units.
//
// A unit is an independently authored component shipped as a directory or a
// zip archive with a manifest at its root. This package decodes manifests and
// normalizes them into a [Descriptor]:
//   - [Decode]: read a raw manifest (unit.cue, unit.json, unit.toml, unit.yaml)
//   - [Parse]: validate and default a decoded manifest; never fails
//   - [LoadStatus]: the terminal status recording why a unit did or did not load
//   - [FaultKind]: the error taxonomy statuses map onto
//
// # Naming
//
// Unit names start with a letter and continue with letters, digits, '-' or
// '_' (at least two characters). A descriptor whose name is missing or
// malformed gets status [InvalidName] and its name replaced by the status
// label so that logs always carry a non-empty identifier. The declared name
// is kept in [Descriptor.DeclaredName].
package unitmod
