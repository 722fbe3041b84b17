package imagecache

import "testing"

import "github.com/stretchr/testify/require"

func TestResolveGlobalDisable(t *testing.T) {
	require.False(t, Resolve([]Hint{{Pattern: "*", Cache: true}}, "nginx", DisableAll))
}

func TestResolveFirstMatchWins(t *testing.T) {
	hints := []Hint{
		{Pattern: "myregistry/*", Cache: false},
		{Pattern: "*", Cache: true},
	}
	require.False(t, Resolve(hints, "myregistry/app:latest", ""))
	require.True(t, Resolve(hints, "nginx", ""))
}

func TestResolveDefaultsToTrue(t *testing.T) {
	require.True(t, Resolve(nil, "nginx", ""))
}

func TestMatchesPatternExactAndPrefix(t *testing.T) {
	require.True(t, matchesPattern("nginx", "nginx"))
	require.False(t, matchesPattern("nginx", "nginx:latest"))
	require.True(t, matchesPattern("nginx*", "nginx:latest"))
}

func TestParseHintsPreservesOrder(t *testing.T) {
	hints, err := ParseHints([]string{"myregistry/*=false", "*=true"})
	require.NoError(t, err)
	require.Equal(t, []Hint{
		{Pattern: "myregistry/*", Cache: false},
		{Pattern: "*", Cache: true},
	}, hints)
}

func TestParseHintsRejectsMalformedEntry(t *testing.T) {
	_, err := ParseHints([]string{"no-equals-sign"})
	require.Error(t, err)

	_, err = ParseHints([]string{"nginx=notabool"})
	require.Error(t, err)
}
