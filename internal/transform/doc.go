// SPDX-License-Identifier: MPL-2.0

// Package transform implements the transformation pipeline that unit code
// passes through before it becomes resident in a namespace.
//
// The pipeline holds three kinds of rewriting:
//
//   - access rule sets parsed from accessWidener and reversibleAccessSetter
//     files, applied first;
//   - mixin entries built from a unit's mixin config;
//   - transformer entries contributed by code modifiers and by units at
//     construction time.
//
// Entries run in ascending priority, ties in registration order. A
// transformer failure is never absorbed: Apply returns a *Fault and the
// caller must treat the load as unsafe.
package transform
