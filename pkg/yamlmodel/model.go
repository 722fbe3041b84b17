// Package yamlmodel turns a cluster YAML file into a *types.Cluster:
// parsing, `include:` merging, `extends:` resolution, key validation, name
// qualification, and default assignment (§4.1).
package yamlmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/types"
)

// Config tunes the resolution passes; every field has the default named in
// spec.md.
type Config struct {
	IncludeDepth    int      // default 10
	ExtendsPasses   int      // default 10
	DefaultDriver   string   // default "virtualbox"
	IgnorePatterns  []string // default {".*", "x-*"}
	Separator       string   // default "-"
	DefaultCluster  string   // clustering mode used when options.clustering is absent
}

// DefaultConfig returns the Config spec.md names as defaults.
func DefaultConfig() Config {
	return Config{
		IncludeDepth:   10,
		ExtendsPasses:  10,
		DefaultDriver:  "virtualbox",
		IgnorePatterns: []string{".*", "x-*"},
		Separator:      "-",
		DefaultCluster: string(types.ClusteringDockerSwarm),
	}
}

// knownMachineKeys whitelists the declarative fields §3 names; anything
// else is warned about and ignored, never an error (§4.1 step 4).
var knownMachineKeys = map[string]bool{
	"driver": true, "cpu": true, "memory": true, "size": true,
	"master": true, "swarm": true, "labels": true, "ports": true,
	"shares": true, "images": true, "compose": true, "registries": true,
	"aliases": true, "files": true, "prelude": true, "addendum": true,
	"environment": true, "env_file": true, "options": true, "extends": true,
}

// Parse reads path, resolves includes/extends, validates, and returns the
// Cluster it describes.
func Parse(path string, cfg Config) (*types.Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	doc, err = resolveIncludes(doc, dir, path, 0, cfg.IncludeDepth)
	if err != nil {
		return nil, err
	}

	rootname := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	cluster := &types.Cluster{
		Name:        rootname,
		Origin:      path,
		Environment: stringMap(doc["environment"]),
		Clustering:  clusteringMode(doc, cfg),
	}

	machines, err := parseMachines(doc, rootname, dir, path, cfg)
	if err != nil {
		return nil, err
	}
	cluster.Machines = machines

	cluster.Networks = parseNetworks(doc)
	cluster.Applications = parseApplications(doc, rootname, cfg.Separator)

	validateMasterUniqueness(cluster)
	validateUniqueShortNames(cluster)

	return cluster, nil
}

func clusteringMode(doc map[string]interface{}, cfg Config) types.ClusteringMode {
	options, _ := doc["options"].(map[string]interface{})
	if options != nil {
		if mode, ok := options["clustering"].(string); ok {
			return types.ClusteringMode(mode)
		}
	}
	return types.ClusteringMode(cfg.DefaultCluster)
}

func parseMachines(doc map[string]interface{}, rootname, dir, origin string, cfg Config) ([]*types.Machine, error) {
	rawList, _ := doc["machines"].([]interface{})

	byName := map[string]map[string]interface{}{}
	order := make([]string, 0, len(rawList))
	for _, entry := range rawList {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		if matchesAny(name, cfg.IgnorePatterns) {
			continue
		}
		byName[name] = m
		order = append(order, name)
	}

	byName = resolveExtends(byName, cfg.ExtendsPasses)

	machines := make([]*types.Machine, 0, len(order))
	for _, name := range order {
		raw := byName[name]
		warnUnknownKeys(name, raw)

		spec := &types.MachineSpec{
			ShortName: name,
			Name:      qualify(rootname, name, cfg.Separator),
			Origin:    origin,
		}
		spec.Driver = stringOr(raw["driver"], cfg.DefaultDriver)
		spec.CPU = intOr(raw["cpu"], 0)
		spec.Memory = intOr(raw["memory"], 0)
		spec.Size = intOr(raw["size"], 0)
		spec.Master, _ = raw["master"].(bool)
		spec.Swarm = raw["swarm"]
		spec.Labels = stringMap(raw["labels"])
		spec.Images = toStringList(raw["images"])
		spec.Environment = stringMap(raw["environment"])
		spec.EnvFile = toStringList(raw["env_file"])
		spec.Options = stringMap(raw["options"])

		for _, alias := range toStringList(raw["aliases"]) {
			spec.Aliases = append(spec.Aliases, qualify(rootname, alias, cfg.Separator))
		}

		spec.Ports = parsePorts(raw["ports"])
		spec.Shares = parseShares(raw["shares"], dir)
		spec.Compose = parseCompose(raw["compose"], dir)
		spec.Registries = parseRegistries(raw["registries"])
		spec.Files = parseFileCopies(raw["files"], dir)
		spec.Prelude = parseExecSpecs(raw["prelude"])
		spec.Addendum = parseExecSpecs(raw["addendum"])

		machines = append(machines, &types.Machine{
			Spec:  spec,
			State: &types.MachineState{State: types.StateUnknown},
		})
	}
	return machines, nil
}

func parseNetworks(doc map[string]interface{}) []*types.Network {
	rawList, _ := doc["networks"].([]interface{})
	networks := make([]*types.Network, 0, len(rawList))
	for _, entry := range rawList {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		networks = append(networks, &types.Network{
			Name:       name,
			Driver:     stringOr(m["driver"], "overlay"),
			Attachable: boolOr(m["attachable"], true),
			Scope:      stringOr(m["scope"], "swarm"),
		})
	}
	return networks
}

func parseApplications(doc map[string]interface{}, rootname, sep string) []*types.Application {
	key := "applications"
	if _, ok := doc[key]; !ok {
		key = "stacks"
	}
	rawList, _ := doc[key].([]interface{})
	apps := make([]*types.Application, 0, len(rawList))
	for _, entry := range rawList {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		file, _ := m["file"].(string)
		if name == "" {
			continue
		}
		apps = append(apps, &types.Application{Name: qualify(rootname, name, sep), File: file})
	}
	return apps
}

// qualify prepends prefix to name unless name already carries it, matching
// §3 invariant 5 that aliases are qualified the same way as the main name.
func qualify(prefix, name, sep string) string {
	if strings.HasPrefix(name, prefix+sep) {
		return name
	}
	return prefix + sep + name
}

func warnUnknownKeys(machine string, raw map[string]interface{}) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if k == "name" || knownMachineKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.WithComponent("yamlmodel").Warn().
			Str("machine", machine).Str("key", k).
			Msg("unrecognized machine key, ignored")
	}
}

func validateMasterUniqueness(cluster *types.Cluster) {
	if cluster.Clustering != types.ClusteringDockerSwarm {
		return
	}
	seenMaster := false
	for _, m := range cluster.Machines {
		if !m.Spec.Master {
			continue
		}
		if seenMaster {
			log.WithComponent("yamlmodel").Warn().
				Str("machine", m.Spec.Name).
				Msg("multiple masters declared under classic swarm, demoting")
			m.Spec.Master = false
			continue
		}
		seenMaster = true
	}
}

func validateUniqueShortNames(cluster *types.Cluster) {
	seen := map[string]bool{}
	for _, m := range cluster.Machines {
		if seen[m.Spec.ShortName] {
			log.WithComponent("yamlmodel").Warn().
				Str("machine", m.Spec.ShortName).
				Msg("duplicate machine short name after parsing")
		}
		seen[m.Spec.ShortName] = true
	}
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func boolOr(v interface{}, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func intOr(v interface{}, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func stringMap(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[k] = fmt.Sprintf("%v", val)
	}
	return out
}
