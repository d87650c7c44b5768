// SPDX-License-Identifier: MPL-2.0

// Package telemetry serves the Prometheus registry the loader components
// record into, together with liveness and readiness probes, for long-running
// hosts started with `modhost run`.
package telemetry
