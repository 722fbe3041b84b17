package swarmmode

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

func TestClassify(t *testing.T) {
	require.Equal(t, RoleManager, Classify(&types.MachineSpec{Master: true}))
	require.Equal(t, RoleWorker, Classify(&types.MachineSpec{Master: false}))
	require.Equal(t, RoleNone, Classify(&types.MachineSpec{Master: true, Swarm: false}))
}

func TestRunningManagersExcludesSelfAndNonManagers(t *testing.T) {
	cluster := &types.Cluster{Machines: []*types.Machine{
		{Spec: &types.MachineSpec{Name: "proj-m1", Master: true}, State: &types.MachineState{State: types.StateRunning}},
		{Spec: &types.MachineSpec{Name: "proj-m2", Master: true}, State: &types.MachineState{State: types.StateRunning}},
		{Spec: &types.MachineSpec{Name: "proj-w1", Master: false}, State: &types.MachineState{State: types.StateRunning}},
		{Spec: &types.MachineSpec{Name: "proj-m3", Master: true}, State: &types.MachineState{State: types.StateStopped}},
	}}
	managers := RunningManagers(cluster, "proj-m1")
	require.Equal(t, []string{"proj-m2"}, managers)
}

func TestPickManagerFiltersByPattern(t *testing.T) {
	p := Picker{}
	name, ok := p.PickManager([]string{"proj-m1", "other-m1"}, "proj-")
	require.True(t, ok)
	require.Equal(t, "proj-m1", name)

	_, ok = p.PickManager(nil, "")
	require.False(t, ok)
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := TokenStore{Path: filepath.Join(t.TempDir(), ".cluster.swt")}
	require.NoError(t, store.Save("mtok", "wtok"))
	manager, worker, err := store.Tokens()
	require.NoError(t, err)
	require.Equal(t, "mtok", manager)
	require.Equal(t, "wtok", worker)
}

func TestTokenStoreMissingFileReturnsEmpty(t *testing.T) {
	store := TokenStore{Path: filepath.Join(t.TempDir(), ".cluster.swt")}
	manager, worker, err := store.Tokens()
	require.NoError(t, err)
	require.Empty(t, manager)
	require.Empty(t, worker)
}

func TestParseSwarmInitNodeID(t *testing.T) {
	lines := []string{
		"Swarm initialized: current node (abc123xyz) is now a manager.",
		"",
		"To add a worker to this swarm, run the following command:",
	}
	require.Equal(t, "abc123xyz", parseSwarmInitNodeID(lines))
}

func TestRoleOptionsForRole(t *testing.T) {
	spec := &types.MachineSpec{Swarm: map[string]interface{}{
		"worker": map[string]interface{}{"availability": "drain"},
	}}
	argv := roleOptions(spec, RoleWorker)
	require.Equal(t, []string{"--availability", "drain"}, argv)
	require.Empty(t, roleOptions(spec, RoleManager))
}
