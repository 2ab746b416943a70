package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersionsNumericTriple(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.10.0", "1.9.0", 1},
		{"1.2", "1.2.0", -1},
		{"v2.0.0", "1.99.99", 1},
		{"1.2.3.4", "1.2.10", -1},
		{"1.2.30.1", "1.2.10", 1},
		{"2.0.0-beta", "1.9.9", 1},
		{"2.0.0-beta", "2.0.0", 1},
		{"nightly", "0.0.1", -1},
		{"alpha", "beta", -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compareVersions(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
		assert.Equal(t, -tc.want, compareVersions(tc.b, tc.a), "%s vs %s", tc.b, tc.a)
	}
}

func TestLatestVersionIgnoresPreReleaseRank(t *testing.T) {
	versions := map[string]struct{}{
		"1.9.0":      {},
		"1.10.0-rc1": {},
		"1.2.3.4":    {},
	}
	assert.Equal(t, "1.10.0-rc1", latestVersion(versions))
}
