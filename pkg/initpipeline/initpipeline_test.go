package initpipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/swarmmode"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
)

func TestSelectAll(t *testing.T) {
	steps, err := Select(nil)
	require.NoError(t, err)
	require.Len(t, steps, len(canonicalSteps))
	require.Equal(t, "shares", steps[0].Name)
	require.Equal(t, "applications", steps[len(steps)-1].Name)
}

func TestSelectAbbreviationCanonicalOrder(t *testing.T) {
	steps, err := Select([]string{"comp", "sh"})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, "shares", steps[0].Name)
	require.Equal(t, "compose", steps[1].Name)
}

func TestSelectUnknownErrors(t *testing.T) {
	_, err := Select([]string{"zzz"})
	require.Error(t, err)
}

func TestRunClusterOrdersWorkerBeforeManagerUnderSwarmMode(t *testing.T) {
	var order []string
	record := func(name string) func(ctx context.Context, p *Pipeline, m *types.Machine) error {
		return func(ctx context.Context, p *Pipeline, m *types.Machine) error {
			order = append(order, name+":"+m.Spec.Name)
			return nil
		}
	}
	steps := []Step{
		{Name: "shares", Run: func(ctx context.Context, p *Pipeline, m *types.Machine) error { return record("shares")(ctx, p, m) }},
		{Name: "networks", ManagerOnly: true, Run: func(ctx context.Context, p *Pipeline, m *types.Machine) error { return record("networks")(ctx, p, m) }},
	}

	cluster := &types.Cluster{
		Clustering: types.ClusteringSwarmMode,
		Machines: []*types.Machine{
			{Spec: &types.MachineSpec{Name: "proj-m1", Master: true}},
			{Spec: &types.MachineSpec{Name: "proj-w1", Master: false}},
		},
	}
	p := &Pipeline{
		Lifecycle: lifecycle.New(&toolrunner.Runner{}, lifecycle.DefaultConfig()),
		Cluster:   cluster,
	}

	require.NoError(t, p.RunCluster(context.Background(), steps))
	require.Equal(t, []string{"shares:proj-m1", "shares:proj-w1", "networks:proj-m1"}, order)
	_ = swarmmode.RoleManager
}
