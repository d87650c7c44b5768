// SPDX-License-Identifier: MPL-2.0

// Package resolver computes a safe load order for a batch of unit
// descriptors and excludes units whose hard dependencies can never be met.
package resolver
