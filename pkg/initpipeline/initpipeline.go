// Package initpipeline runs the canonical, independently-skippable,
// leading-character-glob-matched set of per-machine initialization steps
// (§4.3): shares, files, prelude, registries, images, networks, labels,
// compose, addendum, applications. Steps always execute in canonical order
// regardless of how the caller listed them, and Swarm Mode bring-up
// completes every worker-class step across the whole cluster before any
// manager-class step runs (§5's ordering guarantee).
package initpipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/efrecon/machinery/pkg/compose"
	"github.com/efrecon/machinery/pkg/discovery"
	"github.com/efrecon/machinery/pkg/imagecache"
	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/shares"
	"github.com/efrecon/machinery/pkg/swarmmode"
	"github.com/efrecon/machinery/pkg/types"
)

// Step is one named, independently-skippable stage. ManagerOnly marks
// networks/labels/applications, which only run on manager-class machines
// under Swarm Mode (§4.3's table).
type Step struct {
	Name        string
	ManagerOnly bool
	Run         func(ctx context.Context, p *Pipeline, machine *types.Machine) error
}

// canonicalSteps is the fixed order §4.3 names; a caller's requested subset
// is always executed in this order, never the order requested.
var canonicalSteps = []Step{
	{Name: "shares", Run: (*Pipeline).runShares},
	{Name: "files", Run: (*Pipeline).runFiles},
	{Name: "prelude", Run: (*Pipeline).runPrelude},
	{Name: "registries", Run: (*Pipeline).runRegistries},
	{Name: "images", Run: (*Pipeline).runImages},
	{Name: "networks", ManagerOnly: true, Run: (*Pipeline).runNetworks},
	{Name: "labels", ManagerOnly: true, Run: (*Pipeline).runLabels},
	{Name: "compose", Run: (*Pipeline).runCompose},
	{Name: "addendum", Run: (*Pipeline).runAddendum},
	{Name: "applications", ManagerOnly: true, Run: (*Pipeline).runApplications},
}

// Select resolves a caller-provided list of step-name abbreviations (each
// matched by leading-character glob, e.g. "sh" for "shares") to a canonical-
// order subset. An empty patterns list selects every step.
func Select(patterns []string) ([]Step, error) {
	if len(patterns) == 0 {
		return canonicalSteps, nil
	}
	var selected []Step
	for _, step := range canonicalSteps {
		if matchesAny(patterns, step.Name) {
			selected = append(selected, step)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no init step matches %v", patterns)
	}
	return selected, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Pipeline bundles every collaborator a step needs.
type Pipeline struct {
	Lifecycle    *lifecycle.Manager
	VBoxSF       *shares.VBoxSFEngine
	Rsync        *shares.RsyncEngine
	Images       *imagecache.Engine
	Deployer     *compose.Deployer
	SwarmMode    *swarmmode.Manager
	Discovery    discovery.Config
	Cluster      *types.Cluster
	Endpoint     func(machine string) lifecycle.Endpoint
	ManagerGlob  string // filters which manager-class machines networks/labels/applications run on

	// CachingMachine optionally names a dedicated caching machine for a
	// given target (§4.5); nil or an empty return means "cache on the
	// target itself".
	CachingMachine func(machine string) string

	// CachingHints is the `caching: [pattern hint ...]` first-match table
	// (§4.5 step 1) consulted for every image unless the global `-cache`
	// override has already disabled caching.
	CachingHints []imagecache.Hint
}

// Run executes steps on machine in canonical order, skipping manager-only
// steps when role isn't manager.
func (p *Pipeline) Run(ctx context.Context, machine *types.Machine, steps []Step, role swarmmode.Role) error {
	for _, step := range steps {
		if step.ManagerOnly && role != swarmmode.RoleManager {
			continue
		}
		if err := step.Run(ctx, p, machine); err != nil {
			return fmt.Errorf("init step %s on %s: %w", step.Name, machine.Spec.Name, err)
		}
		log.WithMachine(machine.Spec.Name).Info().Str("step", step.Name).Msg("init step complete")
	}
	if len(steps) > 0 {
		if err := p.afterStateChange(ctx, machine, true); err != nil {
			log.WithMachine(machine.Spec.Name).Warn().Err(err).Msg("discovery cache update failed")
		}
	}
	return nil
}

// RunCluster runs steps across every machine, honoring the Swarm Mode
// worker-class-before-manager-class ordering guarantee: under Swarm Mode,
// every non-manager-only step (plus manager-only steps on worker machines,
// which is a no-op) completes for all machines first, then manager-only
// steps run on the manager subset.
func (p *Pipeline) RunCluster(ctx context.Context, steps []Step) error {
	if p.Cluster.Clustering != types.ClusteringSwarmMode {
		for _, machine := range p.Cluster.Machines {
			if err := p.Run(ctx, machine, steps, swarmmode.RoleNone); err != nil {
				return err
			}
		}
		return nil
	}

	var workerSteps, managerSteps []Step
	for _, step := range steps {
		if step.ManagerOnly {
			managerSteps = append(managerSteps, step)
		} else {
			workerSteps = append(workerSteps, step)
		}
	}

	for _, machine := range p.Cluster.Machines {
		role := swarmmode.Classify(machine.Spec)
		if err := p.Run(ctx, machine, workerSteps, role); err != nil {
			return err
		}
	}
	for _, machine := range p.Cluster.Machines {
		role := swarmmode.Classify(machine.Spec)
		if role != swarmmode.RoleManager {
			continue
		}
		if p.ManagerGlob != "" && !strings.HasPrefix(machine.Spec.Name, p.ManagerGlob) {
			continue
		}
		if err := p.Run(ctx, machine, managerSteps, role); err != nil {
			return err
		}
	}
	return nil
}
