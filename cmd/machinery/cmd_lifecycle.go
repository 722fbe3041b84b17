package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/initpipeline"
	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/swarmclassic"
	"github.com/efrecon/machinery/pkg/swarmmode"
	"github.com/efrecon/machinery/pkg/types"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create/start every machine, join the swarm, and run the init pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		return upCluster(ctx, e)
	},
}

var haltCmd = &cobra.Command{
	Use:   "halt [NAME...]",
	Short: "Gracefully stop one or more machines (all, if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		return e.forEachMachine(ctx, args, e.Lifecycle.Halt)
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [NAME...]",
	Short: "Halt and destroy one or more machines (all, if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		return e.forEachMachine(ctx, args, e.Lifecycle.Destroy)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart [NAME...]",
	Short: "Halt then start one or more machines (all, if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		return e.forEachMachine(ctx, args, e.Lifecycle.Restart)
	},
}

var reinitSteps []string

var reinitCmd = &cobra.Command{
	Use:   "reinit [NAME...]",
	Short: "Re-run init-pipeline steps against one or more machines (all, if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		steps, err := initpipeline.Select(reinitSteps)
		if err != nil {
			return err
		}
		targets, err := e.resolveNames(args)
		if err != nil {
			return err
		}
		for _, name := range targets {
			m, ok := e.findBound(name)
			if !ok {
				continue
			}
			role := swarmmode.RoleNone
			if e.cluster.Clustering == types.ClusteringSwarmMode {
				role = swarmmode.Classify(m.Spec)
			}
			if err := e.Pipeline.Run(ctx, m, steps, role); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	reinitCmd.Flags().StringSliceVar(&reinitSteps, "steps", nil, "Init steps to run, by leading-character abbreviation (default: all)")
}

// upCluster creates/starts every machine, joins Swarm Mode machines into
// their swarm, then runs the full init pipeline across the cluster.
func upCluster(ctx context.Context, e *Engine) error {
	for _, m := range e.cluster.Machines {
		if err := ensureCreated(ctx, e, m); err != nil {
			return fmt.Errorf("up %s: %w", m.Spec.Name, err)
		}
	}
	if err := e.Lifecycle.Bind(ctx, e.cluster); err != nil {
		log.WithCluster(e.cluster.Name).Warn().Err(err).Msg("bind after create failed")
	}

	if e.cluster.Clustering == types.ClusteringSwarmMode {
		if err := joinSwarmMode(ctx, e); err != nil {
			return err
		}
	}

	steps, err := initpipeline.Select(nil)
	if err != nil {
		return err
	}
	return e.Pipeline.RunCluster(ctx, steps)
}

// ensureCreated creates m if it has no corresponding live machine yet, or
// starts it if it exists but isn't running.
func ensureCreated(ctx context.Context, e *Engine, m *types.Machine) error {
	if m.State == nil || m.State.State == types.StateUnknown {
		var swarmArgs []string
		if e.cluster.Clustering == types.ClusteringDockerSwarm {
			token, err := e.Classic.Token()
			if err != nil {
				return err
			}
			swarmArgs = swarmclassic.CreateFlags(m.Spec, token)
		}
		return e.Lifecycle.Create(ctx, m.Spec, swarmArgs)
	}
	if m.State.State != types.StateRunning {
		return e.Lifecycle.Start(ctx, m.Spec.Name)
	}
	return nil
}

// joinSwarmMode walks the cluster in declaration order, initializing the
// first manager that finds no running peer manager and joining every other
// participant against a randomly picked running manager (§4.4's join
// protocol).
func joinSwarmMode(ctx context.Context, e *Engine) error {
	for _, m := range e.cluster.Machines {
		role := swarmmode.Classify(m.Spec)
		if role == swarmmode.RoleNone {
			continue
		}
		endpoint := e.Endpoint(m.Spec.Name)
		managers := swarmmode.RunningManagers(e.cluster, m.Spec.Name)

		if len(managers) == 0 && role == swarmmode.RoleManager {
			if _, err := e.SwarmMode.Init(ctx, endpoint, endpoint.Host); err != nil {
				return fmt.Errorf("swarm init on %s: %w", m.Spec.Name, err)
			}
			continue
		}

		managerName, ok := e.SwarmMode.Picker.PickManager(managers, "")
		if !ok {
			return fmt.Errorf("join %s: %w: no running manager available", m.Spec.Name, ErrTransient)
		}
		managerEndpoint := e.Endpoint(managerName)

		managerToken, workerToken, err := e.SwarmMode.Tokens.Tokens()
		if err != nil {
			return err
		}
		token := workerToken
		if role == swarmmode.RoleManager {
			token = managerToken
		}
		if token == "" {
			return fmt.Errorf("join %s: %w: no cached join token", m.Spec.Name, ErrTransient)
		}

		addr, err := e.SwarmMode.ManagerAddr(ctx, managerEndpoint)
		if err != nil {
			return fmt.Errorf("join %s: %w: %s", m.Spec.Name, ErrTransient, err)
		}

		if _, err := e.SwarmMode.Join(ctx, m.Spec.Name, m.Spec, role, token, addr, managerEndpoint); err != nil {
			return fmt.Errorf("join %s: %w", m.Spec.Name, err)
		}
	}
	return nil
}
