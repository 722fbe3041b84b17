// Package namecompare implements the one name-equality rule every other
// package that resolves a user-typed name against a fully-qualified
// machine or stack name relies on (§4.10): byte equality, or equality of
// the fully-qualified name's suffix after its first separator.
package namecompare

import "strings"

// DefaultSeparator is the character joining a cluster prefix to a short
// name, e.g. "proj-n1".
const DefaultSeparator = "-"

// Equal reports whether a and b name the same entity: either they are
// byte-equal, or one of them is the fully-qualified form of the other
// (prefix + separator + shortname).
func Equal(a, b string) bool {
	return EqualSep(a, b, DefaultSeparator)
}

// EqualSep is Equal with an explicit separator.
func EqualSep(a, b, sep string) bool {
	if a == b {
		return true
	}
	return shortOf(a, sep) == b || shortOf(b, sep) == a
}

// shortOf returns the suffix of name after its first occurrence of sep, or
// name itself if sep does not appear.
func shortOf(name, sep string) string {
	idx := strings.Index(name, sep)
	if idx < 0 {
		return name
	}
	return name[idx+len(sep):]
}

// Find returns the element of candidates equal (per Equal) to name, and
// whether one was found. Ties go to the first match.
func Find(name string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if Equal(name, c) {
			return c, true
		}
	}
	return "", false
}
