// Package swarmmode implements manager/worker Swarm Mode clustering: role
// classification, the join protocol, leave, the random manager picker, and
// network creation (§4.4). Stack deploy's compose linearization lives in
// pkg/compose; this package only drives the `docker swarm`/`docker node`/
// `docker network` commands themselves.
package swarmmode

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
)

// Role is a machine's Swarm Mode participation class.
type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
	RoleNone    Role = ""
)

// Classify implements §4.4's mode classification under Swarm Mode.
func Classify(spec *types.MachineSpec) Role {
	if swarmDisabled(spec) {
		return RoleNone
	}
	if spec.Master {
		return RoleManager
	}
	return RoleWorker
}

func swarmDisabled(spec *types.MachineSpec) bool {
	if enabled, ok := spec.Swarm.(bool); ok {
		return !enabled
	}
	return false
}

// TokenStore is the `.CLUSTER.swt` side-car for Swarm Mode join tokens: two
// whitespace-separated tokens, `MANAGER WORKER` (§6). Unlike the classic
// Swarm discovery token, the manager advertise address is never persisted
// here -- it's queried live from a running manager's own ManagerStatus.Addr
// each time a join needs it (§4.4 step 3), since a cached address can go
// stale across machine restarts in a way a join token cannot.
type TokenStore struct {
	Path string
}

// Tokens returns the cached manager and worker join tokens; either may be
// empty if never minted.
func (s TokenStore) Tokens() (manager, worker string, err error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read token store %s: %w", s.Path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return "", "", nil
	}
	return fields[0], fields[1], nil
}

// Save persists freshly minted or refreshed tokens as the two whitespace-
// separated fields the side-car format specifies.
func (s TokenStore) Save(manager, worker string) error {
	line := fmt.Sprintf("%s %s\n", manager, worker)
	if err := os.WriteFile(s.Path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write token store %s: %w", s.Path, err)
	}
	return nil
}

// Picker chooses a random running manager matching an optional glob-style
// prefix pattern (§4.4's manager picker). Pattern "" matches everything.
// Rand is nil in production (seeded from the current time on first use, so
// picks vary run to run) and set to a fixed source in tests for
// determinism.
type Picker struct {
	Rand *rand.Rand
}

func (p Picker) pick(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return candidates[r.Intn(len(candidates))], true
}

// RunningManagers filters cluster's bound machines down to manager-role
// machines currently Running, excluding excludeName (the "running managers
// excluding this machine" set of §4.4 step 1).
func RunningManagers(cluster *types.Cluster, excludeName string) []string {
	var names []string
	for _, m := range cluster.Machines {
		if m.Spec.Name == excludeName {
			continue
		}
		if Classify(m.Spec) != RoleManager {
			continue
		}
		if m.State == nil || m.State.State != types.StateRunning {
			continue
		}
		names = append(names, m.Spec.Name)
	}
	return names
}

// PickManager chooses one name from candidates matching pattern (a name
// prefix; "" matches all).
func (p Picker) PickManager(candidates []string, pattern string) (string, bool) {
	var filtered []string
	for _, name := range candidates {
		if pattern == "" || strings.HasPrefix(name, pattern) {
			filtered = append(filtered, name)
		}
	}
	return p.pick(filtered)
}

// Manager drives `docker swarm`/`docker node`/`docker network` against an
// endpoint using a lifecycle Manager's runner.
type Manager struct {
	Lifecycle *lifecycle.Manager
	Tokens    TokenStore
	Picker    Picker
}

// Init runs `docker swarm init` on the given machine (a manager with no
// peers yet), parses its node id, mints both join tokens, and persists them.
func (m *Manager) Init(ctx context.Context, endpoint lifecycle.Endpoint, advertiseAddr string) (nodeID string, err error) {
	argv := []string{"swarm", "init"}
	if advertiseAddr != "" {
		argv = append(argv, "--advertise-addr", advertiseAddr)
	}
	result, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return "", fmt.Errorf("swarm init on %s: %w", endpoint.Machine, err)
	}
	nodeID = parseSwarmInitNodeID(result.Lines)

	managerToken, err := m.joinToken(ctx, endpoint, "manager")
	if err != nil {
		return nodeID, err
	}
	workerToken, err := m.joinToken(ctx, endpoint, "worker")
	if err != nil {
		return nodeID, err
	}
	if err := m.Tokens.Save(managerToken, workerToken); err != nil {
		return nodeID, err
	}
	return nodeID, nil
}

// ManagerAddr queries a running manager's own advertise address via `docker
// node inspect self`, the live lookup §4.4 step 3 specifies in place of
// caching the address alongside the join tokens.
func (m *Manager) ManagerAddr(ctx context.Context, managerEndpoint lifecycle.Endpoint) (string, error) {
	result, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker,
		[]string{"node", "inspect", "self", "--format", "{{.ManagerStatus.Addr}}"},
		toolrunner.Options{Env: managerEndpoint.Env()})
	if err != nil {
		return "", fmt.Errorf("manager addr on %s: %w", managerEndpoint.Machine, err)
	}
	for _, line := range result.Lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", fmt.Errorf("manager addr on %s: empty output", managerEndpoint.Machine)
}

func (m *Manager) joinToken(ctx context.Context, endpoint lifecycle.Endpoint, role string) (string, error) {
	result, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"swarm", "join-token", "-q", role}, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return "", fmt.Errorf("join-token %s: %w", role, err)
	}
	for _, line := range result.Lines {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
	}
	return "", fmt.Errorf("join-token %s: empty output", role)
}

// Join builds and runs `docker swarm join --token TKN ADDR` over SSH on the
// joining machine, appending per-role options from spec.Swarm, then confirms
// by finding the machine's hostname in a fresh `docker node ls` on manager
// (§4.4 steps 4-5).
func (m *Manager) Join(ctx context.Context, joiningMachine string, spec *types.MachineSpec, role Role, token, addr string, managerEndpoint lifecycle.Endpoint) (nodeID string, err error) {
	argv := []string{"swarm", "join", "--token", token, addr}
	argv = append(argv, roleOptions(spec, role)...)

	if _, err := m.Lifecycle.SSH(ctx, joiningMachine, append([]string{"docker"}, argv...)); err != nil {
		return "", fmt.Errorf("join %s: %w", joiningMachine, err)
	}

	result, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"node", "ls"}, toolrunner.Options{Env: managerEndpoint.Env()})
	if err != nil {
		return "", fmt.Errorf("confirm join %s: %w", joiningMachine, err)
	}
	rows := toolrunner.ParseTable(result.Lines, nil)
	for _, row := range rows {
		if strings.Contains(row["hostname"], joiningMachine) || row["hostname"] == joiningMachine {
			return row["id"], nil
		}
	}
	return "", fmt.Errorf("confirm join %s: not found in node ls", joiningMachine)
}

func roleOptions(spec *types.MachineSpec, role Role) []string {
	opts, ok := spec.Swarm.(map[string]interface{})
	if !ok {
		return nil
	}
	key := string(role)
	sub, ok := opts[key].(map[string]interface{})
	if !ok {
		return nil
	}
	var argv []string
	for k, v := range sub {
		argv = append(argv, fmt.Sprintf("--%s", k), fmt.Sprintf("%v", v))
	}
	return argv
}

// Leave demotes a manager before it leaves, falling back to `--force` if
// Docker refuses a plain leave (§4.4's leave flow).
func (m *Manager) Leave(ctx context.Context, endpoint lifecycle.Endpoint, role Role) error {
	if role == RoleManager {
		if _, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"node", "demote", endpoint.Machine}, toolrunner.Options{Env: endpoint.Env()}); err != nil {
			return fmt.Errorf("demote %s: %w", endpoint.Machine, err)
		}
	}
	result, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"swarm", "leave"}, toolrunner.Options{Env: endpoint.Env()})
	if err == nil && result.ExitCode == 0 {
		return nil
	}
	_, err = m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"swarm", "leave", "--force"}, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return fmt.Errorf("leave %s: %w", endpoint.Machine, err)
	}
	return nil
}

// EnsureNetwork creates a network matching spec on the given manager
// endpoint if it does not already exist (§4.4's network create).
func (m *Manager) EnsureNetwork(ctx context.Context, endpoint lifecycle.Endpoint, spec *types.Network) error {
	existing, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"network", "ls", "--format", "{{.Name}}"}, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	for _, line := range existing.Lines {
		if strings.TrimSpace(line) == spec.Name {
			return nil
		}
	}

	driver := spec.Driver
	if driver == "" {
		driver = "overlay"
	}
	scope := spec.Scope
	if scope == "" {
		scope = "swarm"
	}
	argv := []string{"network", "create", "--driver", driver, "--scope", scope}
	if spec.Attachable {
		argv = append(argv, "--attachable")
	}
	argv = append(argv, spec.Name)

	if _, err := m.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: endpoint.Env()}); err != nil {
		return fmt.Errorf("create network %s: %w", spec.Name, err)
	}
	return nil
}

func parseSwarmInitNodeID(lines []string) string {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Swarm initialized: current node (") {
			rest := strings.TrimPrefix(line, "Swarm initialized: current node (")
			if idx := strings.Index(rest, ")"); idx > 0 {
				return rest[:idx]
			}
		}
	}
	return ""
}
