// Package lifecycle drives a single Machine through create, start, halt,
// destroy, restart, bind, ssh, inspect, ps, and sync (§4.2). It is the
// layer Init Pipeline and the Swarm subsystems call into for anything that
// touches `docker-machine` directly.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/efrecon/machinery/pkg/cache"
	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/metrics"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
	"github.com/efrecon/machinery/pkg/unixremote"
)

// Config tunes timing and defaults for every Manager operation. The SSH
// readiness wait takes its retry count and delay from the single
// SSHRetries/SSHRetryDelay pair (DESIGN.md); WaitRetries/WaitRetryDelay
// tune the separate state-polling wait.
type Config struct {
	SSHRetries     int           // default 5
	SSHRetryDelay  time.Duration // default 5s
	WaitRetries    int           // default 30
	WaitRetryDelay time.Duration // default 2s
	DefaultDriver  string
}

// DefaultConfig returns spec.md's named defaults.
func DefaultConfig() Config {
	return Config{
		SSHRetries:     5,
		SSHRetryDelay:  5 * time.Second,
		WaitRetries:    30,
		WaitRetryDelay: 2 * time.Second,
		DefaultDriver:  "virtualbox",
	}
}

// Manager performs lifecycle operations against `docker-machine`, caching
// discovered driver option lists via an optional retention cache.
type Manager struct {
	Runner *toolrunner.Runner
	Cache  *cache.Store // may be nil; option discovery then always re-probes
	Config Config
}

// New returns a Manager using runner for every docker-machine invocation.
func New(runner *toolrunner.Runner, cfg Config) *Manager {
	return &Manager{Runner: runner, Config: cfg}
}

// Create provisions a new machine per spec, translating its uniform fields
// into driver-specific `docker-machine create` flags.
func (m *Manager) Create(ctx context.Context, spec *types.MachineSpec, swarmArgs []string) error {
	timer := metrics.NewTimer()
	argv := append([]string{"create", "--driver", spec.Driver}, DriverFlags(spec)...)
	argv = append(argv, swarmArgs...)
	argv = append(argv, spec.Name)

	log.WithMachine(spec.Name).Info().Strs("argv", argv).Msg("creating machine")

	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, argv, toolrunner.Options{})
	timer.ObserveDurationVec(metrics.InitStepDuration, "create")
	if err != nil {
		return fmt.Errorf("create %s: %w", spec.Name, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("create %s: docker-machine exited %d", spec.Name, result.ExitCode)
	}

	if err := m.WaitSSH(ctx, spec.Name); err != nil {
		log.WithMachine(spec.Name).Warn().Err(err).Msg("ssh did not become ready within retry budget")
		return nil
	}

	m.upgradeIfNewer(ctx, spec.Name)

	return nil
}

// upgradeIfNewer compares the local and guest `docker` versions and runs
// `docker-machine upgrade` when the local release is strictly newer and the
// guest isn't rancheros, which ships its own pinned Docker (§4.2's
// post-create step). Failures here are logged, not fatal: a stale remote
// Docker doesn't block the rest of the init pipeline.
func (m *Manager) upgradeIfNewer(ctx context.Context, name string) {
	localBanner, err := m.Runner.Version(ctx, toolrunner.ToolDocker)
	if err != nil {
		log.WithMachine(name).Warn().Err(err).Msg("local docker version probe failed, skipping upgrade check")
		return
	}
	osID, err := unixremote.New(m.Runner, name).OSRelease(ctx)
	if err != nil {
		log.WithMachine(name).Warn().Err(err).Msg("guest os-release probe failed, skipping upgrade check")
		return
	}
	if osID == "rancheros" {
		return
	}
	remoteLines, err := m.SSH(ctx, name, []string{"docker", "--version"})
	if err != nil {
		log.WithMachine(name).Warn().Err(err).Msg("guest docker version probe failed, skipping upgrade check")
		return
	}
	if len(remoteLines) == 0 {
		return
	}

	local := toolrunner.ParseVersion(localBanner)
	remote := toolrunner.ParseVersion(remoteLines[0])
	if local == nil || remote == nil {
		return
	}
	if toolrunner.CompareVersions(local, remote) <= 0 {
		return
	}

	log.WithMachine(name).Info().Msg("local docker is newer than guest, upgrading")
	if _, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"upgrade", name}, toolrunner.Options{}); err != nil {
		log.WithMachine(name).Warn().Err(err).Msg("docker-machine upgrade failed")
	}
}

// Start runs `docker-machine start` for name.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.simple(ctx, "start", name)
}

// Halt asks for a graceful stop and force-kills if the machine is not
// `Stopped` afterward.
func (m *Manager) Halt(ctx context.Context, name string) error {
	if err := m.simple(ctx, "stop", name); err != nil {
		log.WithMachine(name).Warn().Err(err).Msg("graceful stop failed, forcing kill")
	}
	state, err := m.WaitState(ctx, name, []string{"Stopped"}, 1, 0)
	if err == nil && state == "Stopped" {
		return nil
	}
	if _, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"kill", name}, toolrunner.Options{}); err != nil {
		return fmt.Errorf("force-kill %s: %w", name, err)
	}
	return nil
}

// Destroy halts then destroys name.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	_ = m.Halt(ctx, name)
	_, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"rm", "-y", name}, toolrunner.Options{})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", name, err)
	}
	return nil
}

// Restart halts then starts name.
func (m *Manager) Restart(ctx context.Context, name string) error {
	if err := m.Halt(ctx, name); err != nil {
		return err
	}
	return m.Start(ctx, name)
}

// SSH runs command on name over `docker-machine ssh` and returns its
// output lines.
func (m *Manager) SSH(ctx context.Context, name string, command []string) ([]string, error) {
	argv := append([]string{"ssh", name}, command...)
	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, argv, toolrunner.Options{})
	if err != nil {
		return nil, fmt.Errorf("ssh %s: %w", name, err)
	}
	return result.Lines, nil
}

// Inspect returns the raw JSON lines of `docker-machine inspect`.
func (m *Manager) Inspect(ctx context.Context, name string) ([]string, error) {
	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"inspect", name}, toolrunner.Options{})
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", name, err)
	}
	return result.Lines, nil
}

// Ps runs `docker ps` against endpoint and returns the parsed rows.
func (m *Manager) Ps(ctx context.Context, endpoint Endpoint) ([]map[string]string, error) {
	result, err := m.Runner.Run(ctx, toolrunner.ToolDocker, []string{"ps"}, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return nil, fmt.Errorf("ps: %w", err)
	}
	return toolrunner.ParseTable(result.Lines, map[string]string{"CONTAINER ID": "container_id"}), nil
}

func (m *Manager) simple(ctx context.Context, verb, name string) error {
	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{verb, name}, toolrunner.Options{})
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, name, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%s %s: exited %d", verb, name, result.ExitCode)
	}
	return nil
}

// Endpoint is the attachment state for one docker endpoint (§5's "single
// process-global" DOCKER_HOST/DOCKER_CERT_PATH/DOCKER_TLS_VERIFY/
// DOCKER_MACHINE_NAME set), modeled here as an explicit value every `docker`
// invocation takes rather than mutated process state (§9's design note).
type Endpoint struct {
	Host      string
	CertPath  string
	TLSVerify bool
	Machine   string
}

// Env renders the endpoint as the environment variables `docker` expects.
func (e Endpoint) Env() map[string]string {
	tls := "0"
	if e.TLSVerify {
		tls = "1"
	}
	return map[string]string{
		"DOCKER_HOST":         e.Host,
		"DOCKER_CERT_PATH":    e.CertPath,
		"DOCKER_TLS_VERIFY":   tls,
		"DOCKER_MACHINE_NAME": e.Machine,
	}
}
