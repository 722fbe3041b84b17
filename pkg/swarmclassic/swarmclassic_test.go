package swarmclassic

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	store := TokenStore{Path: filepath.Join(t.TempDir(), ".cluster.swt")}

	token, err := store.Token()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Save("abc123"))
	token, err = store.Token()
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
}

func TestCreateFlagsNoTokenYieldsNoFlags(t *testing.T) {
	spec := &types.MachineSpec{Name: "proj-n1"}
	require.Empty(t, CreateFlags(spec, ""))
}

func TestCreateFlagsMaster(t *testing.T) {
	spec := &types.MachineSpec{Name: "proj-n1", Master: true}
	argv := CreateFlags(spec, "tok")
	require.Equal(t, []string{"--swarm", "--swarm-discovery", "token://tok", "--swarm-master"}, argv)
}

func TestCreateFlagsExplicitlyDisabled(t *testing.T) {
	spec := &types.MachineSpec{Name: "proj-n1", Swarm: false}
	require.Empty(t, CreateFlags(spec, "tok"))
}
