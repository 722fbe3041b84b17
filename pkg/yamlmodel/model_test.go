package yamlmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseSingleMachine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: n1
    driver: virtualbox
    memory: 2048
`)

	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, cluster.Machines, 1)

	m := cluster.Machines[0]
	require.Equal(t, "proj-n1", m.Spec.Name)
	require.Equal(t, "virtualbox", m.Spec.Driver)
	require.Equal(t, 2048, m.Spec.Memory)
}

func TestParseDefaultsDriverWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: n1
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "virtualbox", cluster.Machines[0].Spec.Driver)
}

func TestParseMultipleMastersClassicSwarmDemotesSecond(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: n1
    master: true
  - name: n2
    master: true
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.True(t, cluster.Machines[0].Spec.Master)
	require.False(t, cluster.Machines[1].Spec.Master)
}

func TestParseSwarmModeAllowsMultipleMasters(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
options:
  clustering: swarm mode
machines:
  - name: n1
    master: true
  - name: n2
    master: true
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, types.ClusteringSwarmMode, cluster.Clustering)
	require.True(t, cluster.Machines[0].Spec.Master)
	require.True(t, cluster.Machines[1].Spec.Master)
}

func TestParseExtendsMergesBase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: base
    driver: virtualbox
    memory: 1024
    labels:
      tier: web
  - name: n1
    extends: base
    memory: 2048
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)

	var n1 *types.Machine
	for _, m := range cluster.Machines {
		if m.Spec.ShortName == "n1" {
			n1 = m
		}
	}
	require.NotNil(t, n1)
	require.Equal(t, "virtualbox", n1.Spec.Driver)
	require.Equal(t, 2048, n1.Spec.Memory)
	require.Equal(t, "web", n1.Spec.Labels["tier"])
}

func TestParseIncludeMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", `
environment:
  FOO: bar
`)
	path := writeFile(t, dir, "proj.yml", `
include:
  - base.yml
environment:
  BAZ: qux
machines:
  - name: n1
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "bar", cluster.Environment["FOO"])
	require.Equal(t, "qux", cluster.Environment["BAZ"])
}

func TestParseAliasesQualified(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: n1
    aliases: [web, frontend]
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []string{"proj-web", "proj-frontend"}, cluster.Machines[0].Spec.Aliases)
}

func TestParseIgnoresTemplateMachines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", `
machines:
  - name: .template
    driver: virtualbox
  - name: n1
`)
	cluster, err := Parse(path, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, cluster.Machines, 1)
	require.Equal(t, "n1", cluster.Machines[0].Spec.ShortName)
}

func TestParseMalformedYAMLIsParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "proj.yml", "machines: [this is not: valid: yaml")
	_, err := Parse(path, DefaultConfig())
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestResolvedEnvironmentPrecedence(t *testing.T) {
	spec := &types.MachineSpec{
		EnvFile:     []string{"base.env"},
		Environment: map[string]string{"FOO": "from-environment"},
	}
	resolved, err := ResolvedEnvironment(spec, func(path string) (map[string]string, error) {
		return map[string]string{"FOO": "from-env-file", "OTHER": "unchanged"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "from-environment", resolved["FOO"])
	require.Equal(t, "unchanged", resolved["OTHER"])
}
