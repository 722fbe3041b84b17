package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/cache"
	"github.com/efrecon/machinery/pkg/compose"
	"github.com/efrecon/machinery/pkg/discovery"
	"github.com/efrecon/machinery/pkg/imagecache"
	"github.com/efrecon/machinery/pkg/initpipeline"
	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/namecompare"
	"github.com/efrecon/machinery/pkg/shares"
	"github.com/efrecon/machinery/pkg/swarmclassic"
	"github.com/efrecon/machinery/pkg/swarmmode"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
	"github.com/efrecon/machinery/pkg/unixremote"
	"github.com/efrecon/machinery/pkg/virtualbox"
	"github.com/efrecon/machinery/pkg/yamlmodel"
)

// Engine bundles a bound Cluster with every collaborator a command body
// needs: it is the one object every cmd_*.go file closes over.
type Engine struct {
	cluster *types.Cluster

	Lifecycle *lifecycle.Manager
	Pipeline  *initpipeline.Pipeline
	SwarmMode *swarmmode.Manager
	Classic   swarmclassic.TokenStore
	Discovery discovery.Config
	Cache     *cache.Store
	Runner    *toolrunner.Runner
	YAMLPath  string
	StorageDir string
}

// Cluster implements pkg/api.ClusterSource so the same Engine can back the
// read-only HTTP façade.
func (e *Engine) Cluster() *types.Cluster { return e.cluster }

// bootstrap parses the YAML named by the root command's --file flag,
// wires every collaborator, and binds the cluster against live
// docker-machine state.
func bootstrap(ctx context.Context, cmd *cobra.Command) (*Engine, error) {
	yamlPath, _ := cmd.Root().PersistentFlags().GetString("file")
	driverOverride, _ := cmd.Root().PersistentFlags().GetString("driver")
	prefix, _ := cmd.Root().PersistentFlags().GetString("prefix")
	cacheHintFlags, _ := cmd.Root().PersistentFlags().GetStringArray("cache-hint")
	cacheHints, err := imagecache.ParseHints(cacheHintFlags)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvariant, err)
	}

	abs, err := filepath.Abs(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", yamlPath, err)
	}

	modelCfg := yamlmodel.DefaultConfig()
	if driverOverride != "" {
		modelCfg.DefaultDriver = driverOverride
	}

	cluster, err := yamlmodel.Parse(abs, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvariant, err)
	}

	dir := filepath.Dir(abs)
	rootname := cluster.Name

	runner := toolrunner.New()
	storageDir := filepath.Join(dir, "."+rootname+".mch")
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", storageDir, err)
	}
	runner.Dir = storageDir

	lifecycleCfg := lifecycle.DefaultConfig()
	if driverOverride != "" {
		lifecycleCfg.DefaultDriver = driverOverride
	}
	lifecycleMgr := lifecycle.New(runner, lifecycleCfg)

	store, err := cache.Open(storageDir)
	if err != nil {
		return nil, fmt.Errorf("open retention cache: %w", err)
	}
	lifecycleMgr.Cache = store

	discoveryCfg := discovery.Config{
		Prefix: prefix,
		Path:   filepath.Join(dir, "."+rootname+".env"),
	}
	swtPath := filepath.Join(dir, "."+rootname+".swt")

	engine := &Engine{
		cluster:    cluster,
		Lifecycle:  lifecycleMgr,
		Discovery:  discoveryCfg,
		Cache:      store,
		Runner:     runner,
		YAMLPath:   abs,
		StorageDir: storageDir,
	}

	if cluster.Clustering == types.ClusteringSwarmMode {
		engine.SwarmMode = &swarmmode.Manager{
			Lifecycle: lifecycleMgr,
			Tokens:    swarmmode.TokenStore{Path: swtPath},
		}
	} else {
		engine.Classic = swarmclassic.TokenStore{Path: swtPath}
	}

	engine.Pipeline = &initpipeline.Pipeline{
		Lifecycle: lifecycleMgr,
		VBoxSF:    &shares.VBoxSFEngine{Lifecycle: lifecycleMgr, VBoxManage: virtualbox.New(runner)},
		Rsync:     &shares.RsyncEngine{Lifecycle: lifecycleMgr},
		Images:    &imagecache.Engine{Lifecycle: lifecycleMgr},
		Deployer:  &compose.Deployer{Lifecycle: lifecycleMgr},
		SwarmMode:    engine.SwarmMode,
		Discovery:    discoveryCfg,
		Cluster:      cluster,
		Endpoint:     engine.Endpoint,
		CachingHints: cacheHints,
	}

	if err := lifecycleMgr.Bind(ctx, cluster); err != nil {
		log.WithCluster(cluster.Name).Warn().Err(err).Msg("bind failed, continuing with unknown machine state")
	}

	return engine, nil
}

// Endpoint resolves the docker attachment for machine name from its last
// bound state. TLS material discovery is left to docker-machine itself
// (DOCKER_CERT_PATH is not reconstructed here); commands that need a
// verified endpoint go through `docker-machine env` instead.
func (e *Engine) Endpoint(name string) lifecycle.Endpoint {
	if m, ok := e.findBound(name); ok && m.State != nil {
		return lifecycle.Endpoint{Host: m.State.URL, Machine: m.Spec.Name}
	}
	return lifecycle.Endpoint{Machine: name}
}

func (e *Engine) findBound(name string) (*types.Machine, bool) {
	for _, m := range e.cluster.Machines {
		if m.Spec.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Find resolves a user-typed name (short or fully-qualified, main name or
// alias) to its bound Machine.
func (e *Engine) Find(name string) (*types.Machine, error) {
	for _, m := range e.cluster.Machines {
		if namecompare.Equal(m.Spec.Name, name) {
			return m, nil
		}
		if _, ok := namecompare.Find(name, m.Spec.Aliases); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: no machine matches %q", ErrInvariant, name)
}

// resolveNames expands an empty name list to every machine in the cluster,
// or resolves each given name to its canonical form.
func (e *Engine) resolveNames(names []string) ([]string, error) {
	if len(names) == 0 {
		all := make([]string, 0, len(e.cluster.Machines))
		for _, m := range e.cluster.Machines {
			all = append(all, m.Spec.Name)
		}
		return all, nil
	}
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		m, err := e.Find(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, m.Spec.Name)
	}
	return resolved, nil
}

// forEachMachine runs op against every resolved name in turn, then
// rebinds the cluster and refreshes the discovery cache for each of
// them -- the "discovery is rewritten after every state-changing
// operation" rule applied uniformly to CLI-driven lifecycle ops, not just
// init-pipeline steps.
func (e *Engine) forEachMachine(ctx context.Context, names []string, op func(context.Context, string) error) error {
	targets, err := e.resolveNames(names)
	if err != nil {
		return err
	}
	for _, name := range targets {
		if err := op(ctx, name); err != nil {
			return err
		}
	}
	if err := e.Lifecycle.Bind(ctx, e.cluster); err != nil {
		log.WithCluster(e.cluster.Name).Warn().Err(err).Msg("bind failed")
	}
	for _, name := range targets {
		m, ok := e.findBound(name)
		if !ok {
			continue
		}
		if err := e.refreshDiscovery(ctx, m); err != nil {
			log.WithMachine(name).Warn().Err(err).Msg("discovery cache update failed")
		}
	}
	return nil
}

func (e *Engine) refreshDiscovery(ctx context.Context, m *types.Machine) error {
	running := m.State != nil && m.State.State == types.StateRunning
	var interfaces []unixremote.InterfaceAddress
	var mainIP, mainHostname string
	if running {
		remote := unixremote.New(e.Runner, m.Spec.Name)
		var err error
		interfaces, err = remote.Ifconfig(ctx)
		if err != nil {
			return err
		}
		if u, err := url.Parse(m.State.URL); err == nil {
			mainIP = u.Hostname()
		}
		mainHostname = m.Spec.Name
	}
	return discovery.Update(e.Discovery, m.Spec.Name, m.Spec.Aliases, running, interfaces, mainIP, mainHostname)
}
