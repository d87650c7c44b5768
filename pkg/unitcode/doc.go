// SPDX-License-Identifier: MPL-2.0

// Package unitcode defines the intermediate representation of unit code
// objects ("classes") that the transformation pipeline rewrites.
//
// A code object is stored in a unit origin as a JSON document at
// classes/<identifier with '.' replaced by '/'>.json. The pipeline decodes
// it into a Class only when a transformer or access rule might touch it and
// re-encodes it only when something was modified.
package unitcode
