package toolrunner

import (
	"regexp"
	"strconv"
)

// versionNumber extracts the first dotted-numeric run from a tool's
// version banner (e.g. "Docker version 24.0.5, build abcdef" -> "24.0.5",
// "docker-compose version 1.29.2, build ..." -> "1.29.2").
var versionNumber = regexp.MustCompile(`\d+(\.\d+)+`)

// ParseVersion pulls the dotted version number out of a version banner and
// splits it into numeric components, so callers can compare releases
// without a semver dependency for a three-component integer tuple.
func ParseVersion(banner string) []int {
	match := versionNumber.FindString(banner)
	if match == "" {
		return nil
	}
	parts := regexpSplit(match)
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nums
		}
		nums = append(nums, n)
	}
	return nums
}

func regexpSplit(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// CompareVersions returns -1, 0, or 1 as a is less than, equal to, or
// greater than b, comparing component-by-component and treating a missing
// trailing component as 0 (so "1.2" == "1.2.0").
func CompareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}
