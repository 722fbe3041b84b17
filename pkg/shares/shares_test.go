package shares

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

func TestResolveTypeDefaultsByDriver(t *testing.T) {
	typ, err := ResolveType(types.Share{}, "virtualbox")
	require.NoError(t, err)
	require.Equal(t, TypeVBoxSF, typ)

	typ, err = ResolveType(types.Share{}, "amazonec2")
	require.NoError(t, err)
	require.Equal(t, TypeRsync, typ)
}

func TestResolveTypeExplicitOverride(t *testing.T) {
	typ, err := ResolveType(types.Share{Options: map[string]string{"type": "rsync"}}, "virtualbox")
	require.NoError(t, err)
	require.Equal(t, TypeRsync, typ)
}

func TestResolveTypeRejectsUnknown(t *testing.T) {
	_, err := ResolveType(types.Share{Options: map[string]string{"type": "nfs"}}, "virtualbox")
	require.Error(t, err)
}

func TestInstallerForKnownDistros(t *testing.T) {
	_, ok := installerFor("ubuntu")
	require.True(t, ok)
	_, ok = installerFor("boot2docker")
	require.True(t, ok)
	_, ok = installerFor("alpine")
	require.False(t, ok)
}

func TestEnsureTrailingSlash(t *testing.T) {
	require.Equal(t, "a/b/", ensureTrailingSlash("a/b"))
	require.Equal(t, "a/b/", ensureTrailingSlash("a/b/"))
}

func TestSanitizeShareName(t *testing.T) {
	require.Equal(t, "data", sanitizeShareName("/data"))
	require.Equal(t, "var_data", sanitizeShareName("/var/data"))
}
