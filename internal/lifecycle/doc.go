// SPDX-License-Identifier: MPL-2.0

// Package lifecycle drives units from discovery to activation and back.
//
// LoadBatch runs discovery, dependency resolution, namespace creation,
// transformer registration and entrypoint instantiation, then fires the
// PreInit, Init and PostInit phases across the whole batch with a barrier
// between phases. Per-unit problems exclude only that unit and are
// recorded on the returned Report. A transformation fault is fatal: the
// batch is rolled back and the *transform.Fault is returned.
//
// Unload, Reload and Shutdown tear units down dependents-first, using the
// dependent back-references recorded at load time.
//
// All operations are serialized; lookups through Active, Lookup and
// Dependents may run concurrently with them.
package lifecycle
