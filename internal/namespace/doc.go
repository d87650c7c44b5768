// SPDX-License-Identifier: MPL-2.0

// Package namespace maintains the resolution graph: one root namespace for
// the platform and one namespace per loaded unit, parented under the
// namespaces of the unit's dependencies (or under the root).
//
// Lookups run: protected prefixes go straight to the root; otherwise the
// namespace's own resident symbols, then its origin (materialized through
// the transformation pipeline and cached), then each parent in
// registration order. Resource lookups may additionally search
// descendants.
package namespace
