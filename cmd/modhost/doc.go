// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modhost.
//
// Every command handler receives an *App, which carries the configuration
// provider, the entrypoint registry and the output streams, and builds the
// loader components (namespaces, pipeline, lifecycle manager) per run.
package cmd
