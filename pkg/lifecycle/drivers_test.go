package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

func TestDriverFlagsVirtualbox(t *testing.T) {
	spec := &types.MachineSpec{
		Name: "proj-n1", Driver: "virtualbox",
		CPU: 2, Memory: 2048, Size: 20000,
	}
	argv := DriverFlags(spec)
	require.Contains(t, argv, "--virtualbox-cpu-count")
	require.Contains(t, argv, "--virtualbox-memory")
	require.Contains(t, argv, "--virtualbox-disk-size")
}

func TestDriverFlagsUnknownDriverSkipsUniformFields(t *testing.T) {
	spec := &types.MachineSpec{Name: "proj-n1", Driver: "nonexistent", CPU: 2, Memory: 2048}
	argv := DriverFlags(spec)
	require.Empty(t, argv)
}

func TestDriverFlagsOptionsBoolean(t *testing.T) {
	spec := &types.MachineSpec{
		Name: "proj-n1", Driver: "virtualbox",
		Options: map[string]string{"virtualbox-no-vtx-check": "true", "virtualbox-hostonly-nictype": "false"},
	}
	argv := DriverFlags(spec)
	require.Contains(t, argv, "--virtualbox-no-vtx-check")
	require.NotContains(t, argv, "--virtualbox-hostonly-nictype")
}

func TestDriverFlagsDiskScale(t *testing.T) {
	spec := &types.MachineSpec{Name: "proj-n1", Driver: "google", Size: 51200}
	argv := DriverFlags(spec)
	require.Equal(t, []string{"--google-disk-size", "50"}, argv)
}

func TestCoerceActive(t *testing.T) {
	require.True(t, coerceActive("*"))
	require.False(t, coerceActive("-"))
	require.False(t, coerceActive(""))
}
