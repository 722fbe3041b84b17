package namecompare

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualByteEqual(t *testing.T) {
	require.True(t, Equal("proj-n1", "proj-n1"))
}

func TestEqualPrefixQualified(t *testing.T) {
	require.True(t, Equal("proj-n1", "n1"))
	require.True(t, Equal("n1", "proj-n1"))
}

func TestEqualDistinctNames(t *testing.T) {
	require.False(t, Equal("proj-n1", "proj-n2"))
	require.False(t, Equal("proj-n1", "other-n1"))
}

func TestFind(t *testing.T) {
	candidates := []string{"proj-n1", "proj-n2", "proj-manager"}
	got, ok := Find("n2", candidates)
	require.True(t, ok)
	require.Equal(t, "proj-n2", got)

	_, ok = Find("missing", candidates)
	require.False(t, ok)
}
