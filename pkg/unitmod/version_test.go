// SPDX-License-Identifier: MPL-2.0

package unitmod

import "testing"

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0.0", "2.0.0-beta.1", 1},
		{"1.0.0", UnspecifiedVersion, 1},
		{UnspecifiedVersion, "0.0.1", -1},
		{"abc", "abd", -1},
	}

	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
