// SPDX-License-Identifier: MPL-2.0

// Package watch monitors unit search paths and fires a debounced callback
// with the set of changed paths.
//
// Events within the debounce window are coalesced so the callback fires once
// per burst. The callback never runs concurrently with itself; a burst that
// arrives while it is running is delivered after it returns.
package watch
