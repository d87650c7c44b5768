// SPDX-License-Identifier: MPL-2.0

// Package discovery turns unit prototypes (directories or zip archives on
// disk) into descriptors.
//
// Each candidate is opened as an Origin, its manifest is located in
// fallback order (unit.cue, unit.json, unit.toml, unit.yaml), decoded and
// parsed. Candidates that cannot be read are skipped with a diagnostic;
// descriptors that fail validation are still returned so callers can report
// them. When several valid descriptors share a name the highest version
// wins.
package discovery
