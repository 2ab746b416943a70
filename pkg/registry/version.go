package registry

import (
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

// compareVersions orders versions by their numeric major.minor.patch.
// Missing components count as zero and pre-release or build suffixes are
// ignored. Extra components past patch are ignored too. Versions with an
// equal triple, and versions with no numeric triple at all, fall back to
// string order; an unparsable version sorts below every parsable one.
func compareVersions(a, b string) int {
	ta, okA := numericTriple(a)
	tb, okB := numericTriple(b)
	switch {
	case okA && okB:
		for i := range ta {
			if ta[i] != tb[i] {
				if ta[i] < tb[i] {
					return -1
				}
				return 1
			}
		}
		return strings.Compare(a, b)
	case okA:
		return 1
	case okB:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func numericTriple(s string) ([3]uint64, bool) {
	if v, err := semver.ParseTolerant(s); err == nil {
		return [3]uint64{v.Major, v.Minor, v.Patch}, true
	}

	core := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) < 3 {
		return [3]uint64{}, false
	}
	var t [3]uint64
	for i := range t {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			return [3]uint64{}, false
		}
		t[i] = n
	}
	return t, true
}

func latestVersion[T any](versions map[string]T) string {
	latest := ""
	for v := range versions {
		if latest == "" || compareVersions(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}
