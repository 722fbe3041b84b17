package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/efrecon/machinery/pkg/types"
)

// Bind merges the live `docker-machine ls` table into cluster's machines:
// state, url, active, and the raw swarm column (§4.2). Machines with no
// corresponding row keep MachineLifecycleState Unknown.
func (m *Manager) Bind(ctx context.Context, cluster *types.Cluster) error {
	rows, err := m.listMachines(ctx)
	if err != nil {
		return fmt.Errorf("bind cluster %s: %w", cluster.Name, err)
	}

	byName := make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		byName[row["name"]] = row
	}

	for _, machine := range cluster.Machines {
		row, ok := byName[machine.Spec.Name]
		if !ok {
			machine.State = &types.MachineState{State: types.StateUnknown}
			continue
		}
		machine.State = &types.MachineState{
			State:      types.MachineLifecycleState(row["state"]),
			URL:        row["url"],
			Active:     coerceActive(row["active"]),
			SwarmState: row["swarm"],
			BoundAt:    time.Now(),
		}
	}
	return nil
}

// coerceActive translates docker-machine ls's "active" column, where "-"
// or empty means false and "*" means true.
func coerceActive(raw string) bool {
	return raw == "*"
}
