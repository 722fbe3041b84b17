package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/environment"
	"github.com/efrecon/machinery/pkg/unixremote"
)

func TestUpdateAddsAndRemovesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".proj.env")
	cfg := Config{Path: path}

	ifaces := []unixremote.InterfaceAddress{
		{Name: "eth0", IPv4: "192.168.1.10"},
		{Name: "vEthernet0", IPv4: "10.0.0.1"},
	}
	require.NoError(t, Update(cfg, "proj-n1", nil, true, ifaces, "192.168.1.10", "proj-n1"))

	vars, err := environment.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "192.168.1.10", vars["MACHINERY_PROJ_N1_ETH0_INET"])
	require.Equal(t, "192.168.1.10", vars["MACHINERY_PROJ_N1_IP"])
	require.NotContains(t, vars, "MACHINERY_PROJ_N1_VETHERNET0_INET")

	require.NoError(t, Update(cfg, "proj-n1", nil, false, nil, "", ""))
	vars, err = environment.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, vars)
}

func TestUpdateCustomPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".proj.env")
	cfg := Config{Path: path, Prefix: "CLUSTER"}
	require.NoError(t, Update(cfg, "n1", []string{"alias1"}, true, nil, "10.0.0.5", "n1"))

	vars, err := environment.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", vars["CLUSTER_N1_IP"])
	require.Equal(t, "10.0.0.5", vars["CLUSTER_ALIAS1_IP"])
}
