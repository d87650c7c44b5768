// SPDX-License-Identifier: MPL-2.0

// Package unitapi is the contract between modhost and unit authors.
//
// A unit ships code objects in its origin; its manifest entrypoint names one
// of them. That class must declare CapabilityInterface among its interfaces,
// and a Factory must be registered under the entrypoint identifier. At load
// time modhost resolves the entrypoint through the unit namespace (which runs
// it through the transformation pipeline) and calls the factory:
//
//	func init() {
//		unitapi.RegisterEntrypoint("com.example.greeter.Entry", func(s unitapi.Setup) (unitapi.Unit, error) {
//			return &greeter{log: s.Logger()}, nil
//		})
//	}
//
// Code modifiers named in a manifest's codeModifiers list are looked up the
// same way with RegisterCodeModifier.
package unitapi
