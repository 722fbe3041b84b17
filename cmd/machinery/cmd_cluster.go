package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/shares"
	"github.com/efrecon/machinery/pkg/swarmclassic"
	"github.com/efrecon/machinery/pkg/swarmmode"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
)

var tokenForce bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the cluster's Swarm join token, generating one if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}

		if e.cluster.Clustering == types.ClusteringSwarmMode {
			manager, worker, err := e.SwarmMode.Tokens.Tokens()
			if err != nil {
				return err
			}
			if manager == "" && worker == "" {
				return fmt.Errorf("%w: no Swarm Mode tokens cached yet, run `up` first", ErrInvariant)
			}
			fmt.Printf("manager=%s\nworker=%s\n", manager, worker)
			return nil
		}

		if !tokenForce {
			token, err := e.Classic.Token()
			if err == nil && token != "" {
				fmt.Println(token)
				return nil
			}
		}
		token, err := swarmclassic.Generate(ctx, e.Runner)
		if err != nil {
			return err
		}
		if err := e.Classic.Save(token); err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenForce, "force", false, "Regenerate the classic Swarm token even if one is cached")
}

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Manage Swarm Mode membership manually",
}

var swarmInitCmd = &cobra.Command{
	Use:   "init NAME",
	Short: "Initialize a Swarm Mode cluster on NAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		if e.SwarmMode == nil {
			return fmt.Errorf("%w: cluster is not configured for Swarm Mode", ErrInvariant)
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		endpoint := e.Endpoint(m.Spec.Name)
		nodeID, err := e.SwarmMode.Init(ctx, endpoint, endpoint.Host)
		if err != nil {
			return err
		}
		fmt.Println(nodeID)
		return nil
	},
}

var swarmJoinRole string

var swarmJoinCmd = &cobra.Command{
	Use:   "join NAME MANAGER",
	Short: "Join NAME to the swarm through MANAGER",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		if e.SwarmMode == nil {
			return fmt.Errorf("%w: cluster is not configured for Swarm Mode", ErrInvariant)
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		manager, err := e.Find(args[1])
		if err != nil {
			return err
		}

		role := swarmmode.Classify(m.Spec)
		if swarmJoinRole == "manager" {
			role = swarmmode.RoleManager
		} else if swarmJoinRole == "worker" {
			role = swarmmode.RoleWorker
		}

		managerToken, workerToken, err := e.SwarmMode.Tokens.Tokens()
		if err != nil {
			return err
		}
		token := workerToken
		if role == swarmmode.RoleManager {
			token = managerToken
		}

		managerEndpoint := e.Endpoint(manager.Spec.Name)
		addr, err := e.SwarmMode.ManagerAddr(ctx, managerEndpoint)
		if err != nil {
			return err
		}

		nodeID, err := e.SwarmMode.Join(ctx, m.Spec.Name, m.Spec, role, token, addr, managerEndpoint)
		if err != nil {
			return err
		}
		fmt.Println(nodeID)
		return nil
	},
}

var swarmLeaveCmd = &cobra.Command{
	Use:   "leave NAME",
	Short: "Remove NAME from the swarm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		if e.SwarmMode == nil {
			return fmt.Errorf("%w: cluster is not configured for Swarm Mode", ErrInvariant)
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		return e.SwarmMode.Leave(ctx, e.Endpoint(m.Spec.Name), swarmmode.Classify(m.Spec))
	},
}

func init() {
	swarmJoinCmd.Flags().StringVar(&swarmJoinRole, "role", "", "Force the joining role (manager or worker), default from the machine spec")
	swarmCmd.AddCommand(swarmInitCmd, swarmJoinCmd, swarmLeaveCmd)
}

var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Deploy and inspect compose stacks/projects",
}

var stackDeployCmd = &cobra.Command{
	Use:   "deploy NAME PROJECT",
	Short: "Deploy the named compose project onto machine NAME",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		project, ok := findProject(m.Spec, args[1])
		if !ok {
			return fmt.Errorf("%w: no compose project %q on %s", ErrInvariant, args[1], m.Spec.Name)
		}
		return e.Pipeline.Deployer.Deploy(ctx, m.Spec.Name, e.Endpoint(m.Spec.Name), project.File, project.Name, nil)
	},
}

var stackRmCmd = &cobra.Command{
	Use:   "rm NAME PROJECT",
	Short: "Tear down the named compose project/stack on machine NAME",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		argv := []string{"stack", "rm", args[1]}
		if e.cluster.Clustering != types.ClusteringSwarmMode {
			argv = []string{"compose", "-p", args[1], "down"}
		}
		result, err := e.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: e.Endpoint(m.Spec.Name).Env()})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Println(line)
		}
		return nil
	},
}

func findProject(spec *types.MachineSpec, name string) (types.ComposeProject, bool) {
	for _, p := range spec.Compose {
		if p.Name == name {
			return p, true
		}
	}
	return types.ComposeProject{}, false
}

func init() {
	stackCmd.AddCommand(stackDeployCmd, stackRmCmd)
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect and label Swarm Mode nodes",
}

var nodeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List Swarm Mode nodes, as seen from any running manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		managers := swarmmode.RunningManagers(e.cluster, "")
		if len(managers) == 0 {
			return fmt.Errorf("%w: no running manager to query", ErrTransient)
		}
		result, err := e.Runner.Run(ctx, toolrunner.ToolDocker, []string{"node", "ls"}, toolrunner.Options{Env: e.Endpoint(managers[0]).Env()})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Println(line)
		}
		return nil
	},
}

var nodeLabelCmd = &cobra.Command{
	Use:   "label NODE KEY=VALUE",
	Short: "Set a label on a Swarm Mode node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		managers := swarmmode.RunningManagers(e.cluster, "")
		if len(managers) == 0 {
			return fmt.Errorf("%w: no running manager to query", ErrTransient)
		}
		argv := []string{"node", "update", "--label-add", args[1], args[0]}
		result, err := e.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: e.Endpoint(managers[0]).Env()})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeLsCmd, nodeLabelCmd)
}

var syncOp string

var syncCmd = &cobra.Command{
	Use:   "sync NAME",
	Short: "Synchronize rsync-backed shares for one machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}

		dir := shares.SyncPut
		if syncOp == "get" {
			dir = shares.SyncGet
		}

		sshArgv, err := e.Pipeline.Rsync.ExtractSSHCommand(ctx, m.Spec.Name)
		if err != nil {
			return err
		}

		for _, share := range m.Spec.Shares {
			typ, err := shares.ResolveType(share, m.Spec.Driver)
			if err != nil {
				return err
			}
			if typ != shares.TypeRsync {
				continue
			}
			if err := e.Pipeline.Rsync.Sync(ctx, sshArgv, share, dir); err != nil {
				return fmt.Errorf("sync %s (%s): %w", m.Spec.Name, share.Guest, err)
			}
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncOp, "op", "put", "Sync direction: get (guest -> host) or put (host -> guest)")
}
