// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UnspecifiedVersion is the version given to units whose manifest omits one.
const UnspecifiedVersion = "Unspecified"

// CompareVersions orders two unit versions. Valid semantic versions compare
// by precedence; anything else (including UnspecifiedVersion) sorts below
// every valid semantic version and compares lexically among its kind.
// The result is -1, 0 or +1.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)

	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}
