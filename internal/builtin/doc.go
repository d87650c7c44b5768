// SPDX-License-Identifier: MPL-2.0

// Package builtin provides the platform classes of the root namespace and
// the entrypoints and code modifiers compiled into the modhost binary.
//
// A unit whose entrypoint is [LoggingUnit] needs no Go code of its own: the
// entrypoint class lives under the protected "modhost." prefix, so every
// unit namespace resolves it from the root.
package builtin
