package toolrunner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersionFromBanner(t *testing.T) {
	require.Equal(t, []int{24, 0, 5}, ParseVersion("Docker version 24.0.5, build abcdef"))
	require.Equal(t, []int{1, 29, 2}, ParseVersion("docker-compose version 1.29.2, build 5becea4c"))
	require.Nil(t, ParseVersion("no version here"))
}

func TestCompareVersions(t *testing.T) {
	require.Equal(t, 1, CompareVersions([]int{24, 0, 5}, []int{19, 3, 1}))
	require.Equal(t, -1, CompareVersions([]int{19, 3, 1}, []int{24, 0, 5}))
	require.Equal(t, 0, CompareVersions([]int{1, 2}, []int{1, 2, 0}))
	require.Equal(t, 1, CompareVersions([]int{1, 2, 1}, []int{1, 2}))
}
