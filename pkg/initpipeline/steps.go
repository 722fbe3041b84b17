package initpipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/efrecon/machinery/pkg/compose"
	"github.com/efrecon/machinery/pkg/discovery"
	"github.com/efrecon/machinery/pkg/imagecache"
	"github.com/efrecon/machinery/pkg/mountvfs"
	"github.com/efrecon/machinery/pkg/shares"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
	"github.com/efrecon/machinery/pkg/unixremote"
)

func (p *Pipeline) runShares(ctx context.Context, machine *types.Machine) error {
	name := machine.Spec.Name
	for _, share := range machine.Spec.Shares {
		switch {
		case share.Host == "":
		case mountvfs.Detect(share.Host) != nil:
			// archive/URL source: resolved by shares.ResolveHost itself, not
			// a path relative to the YAML.
		case !filepath.IsAbs(share.Host):
			share.Host = filepath.Join(filepath.Dir(machine.Spec.Origin), share.Host)
		}

		typ, err := shares.ResolveType(share, machine.Spec.Driver)
		if err != nil {
			return err
		}
		switch typ {
		case shares.TypeVBoxSF:
			if err := p.VBoxSF.Mount(ctx, name, share); err != nil {
				return err
			}
		case shares.TypeRsync:
			osID, err := unixremote.New(p.Lifecycle.Runner, name).OSRelease(ctx)
			if err != nil {
				return err
			}
			if err := p.Rsync.EnsureInstalled(ctx, name, osID); err != nil {
				return err
			}
			sshArgv, err := p.Rsync.ExtractSSHCommand(ctx, name)
			if err != nil {
				return err
			}
			if err := p.Rsync.Sync(ctx, sshArgv, share, shares.SyncPut); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) runFiles(ctx context.Context, machine *types.Machine) error {
	dir := filepath.Dir(machine.Spec.Origin)
	for _, file := range machine.Spec.Files {
		local := file.Host
		if !filepath.IsAbs(local) {
			local = filepath.Join(dir, local)
		}
		_, err := p.Lifecycle.Runner.Run(ctx, toolrunner.ToolDockerMachine,
			[]string{"scp", local, machine.Spec.Name + ":" + file.Guest}, toolrunner.Options{})
		if err != nil {
			return fmt.Errorf("copy %s -> %s: %w", local, file.Guest, err)
		}
	}
	return nil
}

func (p *Pipeline) runPrelude(ctx context.Context, machine *types.Machine) error {
	return runExecSpecs(ctx, p, machine, machine.Spec.Prelude)
}

func (p *Pipeline) runAddendum(ctx context.Context, machine *types.Machine) error {
	return runExecSpecs(ctx, p, machine, machine.Spec.Addendum)
}

func runExecSpecs(ctx context.Context, p *Pipeline, machine *types.Machine, specs []types.ExecSpec) error {
	for _, spec := range specs {
		if _, err := p.Lifecycle.SSH(ctx, machine.Spec.Name, spec.Command); err != nil {
			return fmt.Errorf("exec %v on %s: %w", spec.Command, machine.Spec.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) runRegistries(ctx context.Context, machine *types.Machine) error {
	for _, reg := range machine.Spec.Registries {
		argv := []string{"login"}
		if reg.Username != "" {
			argv = append(argv, "-u", reg.Username)
		}
		if reg.Password != "" {
			argv = append(argv, "-p", reg.Password)
		}
		if reg.URL != "" {
			argv = append(argv, reg.URL)
		}
		if _, err := p.Lifecycle.SSH(ctx, machine.Spec.Name, append([]string{"docker"}, argv...)); err != nil {
			return fmt.Errorf("registry login %s on %s: %w", reg.URL, machine.Spec.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) runImages(ctx context.Context, machine *types.Machine) error {
	targetEndpoint := p.Endpoint(machine.Spec.Name)
	cachingMachine := machine.Spec.Name
	if p.CachingMachine != nil {
		if alt := p.CachingMachine(machine.Spec.Name); alt != "" {
			cachingMachine = alt
		}
	}
	cachingEndpoint := p.Endpoint(cachingMachine)
	globalDisable := machine.Spec.Options["cache"]
	for _, image := range machine.Spec.Images {
		cached := imagecache.Resolve(p.CachingHints, image, globalDisable)
		if err := p.Images.Ensure(ctx, image, machine.Spec.Name, targetEndpoint, cachingEndpoint, cached); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runNetworks(ctx context.Context, machine *types.Machine) error {
	endpoint := p.Endpoint(machine.Spec.Name)
	for _, network := range p.Cluster.Networks {
		if err := p.SwarmMode.EnsureNetwork(ctx, endpoint, network); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runLabels(ctx context.Context, machine *types.Machine) error {
	endpoint := p.Endpoint(machine.Spec.Name)
	for key, value := range machine.Spec.Labels {
		argv := []string{"node", "update", "--label-add", fmt.Sprintf("%s=%s", key, value), machine.Spec.Name}
		if _, err := p.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: endpoint.Env()}); err != nil {
			return fmt.Errorf("label %s on %s: %w", key, machine.Spec.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) runCompose(ctx context.Context, machine *types.Machine) error {
	endpoint := p.Endpoint(machine.Spec.Name)
	dir := filepath.Dir(machine.Spec.Origin)
	var errs []error
	for _, project := range machine.Spec.Compose {
		file := project.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		argv := []string{"-f", file, "-p", project.Name, "up", "-d"}
		_, err := p.Lifecycle.Runner.Run(ctx, toolrunner.ToolCompose, argv, toolrunner.Options{Env: endpoint.Env(), Dir: dir})
		if err != nil {
			errs = append(errs, fmt.Errorf("compose up %s on %s: %w", project.Name, machine.Spec.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) runApplications(ctx context.Context, machine *types.Machine) error {
	endpoint := p.Endpoint(machine.Spec.Name)
	dir := filepath.Dir(p.Cluster.Origin)
	for _, app := range p.Cluster.Applications {
		file := app.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		stack := compose.StackName(app.Name)
		if err := p.Deployer.Deploy(ctx, machine.Spec.Name, endpoint, file, stack, nil); err != nil {
			return fmt.Errorf("deploy application %s: %w", app.Name, err)
		}
	}
	return nil
}

// afterStateChange rewrites the discovery cache for machine, the §5
// ordering guarantee that every state-changing operation ends with it.
func (p *Pipeline) afterStateChange(ctx context.Context, machine *types.Machine, running bool) error {
	var interfaces []unixremote.InterfaceAddress
	var mainIP, mainHostname string
	if running {
		remote := unixremote.New(p.Lifecycle.Runner, machine.Spec.Name)
		var err error
		interfaces, err = remote.Ifconfig(ctx)
		if err != nil {
			return err
		}
		if machine.State != nil {
			if u, err := url.Parse(machine.State.URL); err == nil {
				mainIP = u.Hostname()
			}
		}
		mainHostname = machine.Spec.Name
	}
	return discovery.Update(p.Discovery, machine.Spec.Name, machine.Spec.Aliases, running, interfaces, mainIP, mainHostname)
}
