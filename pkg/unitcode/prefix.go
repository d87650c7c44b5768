// SPDX-License-Identifier: MPL-2.0

package unitcode

import "strings"

// Prefixes is a list of identifier prefixes. Protected prefixes name the
// platform ranges that only the root namespace may provide and that the
// pipeline never rewrites.
type Prefixes []string

// DefaultProtectedPrefixes are used when configuration names none.
var DefaultProtectedPrefixes = Prefixes{"modhost.", "go."}

// Match reports whether id starts with any prefix.
func (p Prefixes) Match(id string) bool {
	for _, prefix := range p {
		if prefix != "" && strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}
