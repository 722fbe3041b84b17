package environment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePushPop(t *testing.T) {
	scope := New()
	scope.Push(map[string]string{"NAME": "n1", "PORT": "2376"})
	defer scope.Pop()

	require.Equal(t, "n1:2376", scope.Resolve("$NAME:${PORT}"))
}

func TestResolveDefault(t *testing.T) {
	scope := New()
	require.Equal(t, "fallback", scope.Resolve("${UNSET_MACHINERY_VAR:fallback}"))
}

func TestResolveIdempotentOnPlainString(t *testing.T) {
	scope := New()
	require.Equal(t, "no variables here", scope.Resolve("no variables here"))
}

func TestResolveIdempotentOnUndefinedNoDefault(t *testing.T) {
	scope := New()
	require.Equal(t, "${UNSET_MACHINERY_VAR}", scope.Resolve("${UNSET_MACHINERY_VAR}"))
}

func TestPushShadowsOuterScope(t *testing.T) {
	scope := New()
	scope.Push(map[string]string{"NAME": "outer"})
	scope.Push(map[string]string{"NAME": "inner"})
	require.Equal(t, "inner", scope.Resolve("$NAME"))
	scope.Pop()
	require.Equal(t, "outer", scope.Resolve("$NAME"))
	scope.Pop()
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".proj.env")
	vars := map[string]string{
		"MACHINERY_PROJ_N1_IP":       "192.168.99.100",
		"MACHINERY_PROJ_N1_HOSTNAME": "n1",
	}
	require.NoError(t, WriteFile(path, vars))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, vars, got)
}

func TestReadFileMissingIsEmpty(t *testing.T) {
	got, err := ReadFile(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	require.Empty(t, got)
}
