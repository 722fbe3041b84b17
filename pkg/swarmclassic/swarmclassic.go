// Package swarmclassic implements token-based "docker swarm" clustering
// (§4.2's "classic mode"): a single discovery token cached in a per-cluster
// `.NAME.swt` side-car, and the create-time flag fragment that attaches a
// machine to it.
package swarmclassic

import (
	"context"
	"fmt"

	"github.com/efrecon/machinery/pkg/environment"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
)

// TokenKey is the side-car key the discovery token is stored under.
const TokenKey = "SWARM_TOKEN"

// TokenStore reads and writes the classic-swarm discovery token cached at
// path, a `.NAME.swt` file in the KEY=VAL format shared with the discovery
// cache (§5).
type TokenStore struct {
	Path string
}

// Token returns the cached token, or "" if none is cached yet.
func (s TokenStore) Token() (string, error) {
	vars, err := environment.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	return vars[TokenKey], nil
}

// Save persists a token string the caller obtained (see Generate) under
// TokenKey, keeping any other keys already in the side-car and rewriting
// the file wholesale, per the "process-exclusive, rewritten wholesale"
// cache rule.
func (s TokenStore) Save(token string) error {
	vars, err := environment.ReadFile(s.Path)
	if err != nil {
		return err
	}
	vars[TokenKey] = token
	return environment.WriteFile(s.Path, vars)
}

// Generate mints a new classic discovery token by running `docker run --rm
// swarm create` through runner and returns the first non-empty line it
// prints.
func Generate(ctx context.Context, runner *toolrunner.Runner) (string, error) {
	result, err := runner.Run(ctx, toolrunner.ToolDocker, []string{"run", "--rm", "swarm", "create"}, toolrunner.Options{})
	if err != nil {
		return "", fmt.Errorf("generate swarm token: %w", err)
	}
	for _, line := range result.Lines {
		if line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("generate swarm token: empty output")
}

// CreateFlags builds the `--swarm ...` fragment §4.2 describes for create
// time: classic mode, a known token, and swarm not explicitly disabled.
// spec.Swarm holds either a bool (explicit enable/disable) or nil (default
// enabled when a token is known).
func CreateFlags(spec *types.MachineSpec, token string) []string {
	if token == "" {
		return nil
	}
	if enabled, explicit := asBool(spec.Swarm); explicit && !enabled {
		return nil
	}

	argv := []string{"--swarm", "--swarm-discovery", "token://" + token}
	if spec.Master {
		argv = append(argv, "--swarm-master")
	}
	return argv
}

func asBool(v interface{}) (value bool, explicit bool) {
	b, ok := v.(bool)
	if !ok {
		return false, false
	}
	return b, true
}
