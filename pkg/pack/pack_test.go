package pack

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteConfigPathsKeepsBackupAndRewritesAbsolute(t *testing.T) {
	root := t.TempDir()
	storageDir := filepath.Join(root, ".mch")
	machineDir := filepath.Join(storageDir, "machines", "m1")
	require.NoError(t, os.MkdirAll(machineDir, 0o755))

	configPath := filepath.Join(machineDir, "config.json")
	original := map[string]interface{}{
		"Driver": map[string]interface{}{
			"StorePath": filepath.Join(machineDir, "blob"),
		},
		"unrelated": "keepme",
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0o600))

	require.NoError(t, RewriteConfigPaths(storageDir))

	backup, err := os.ReadFile(configPath + ".bak")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(backup))

	rewritten, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rewritten, &doc))
	driver := doc["Driver"].(map[string]interface{})
	assert.Equal(t, "blob", driver["StorePath"])
	assert.Equal(t, "keepme", doc["unrelated"])
}

func TestArchiveIncludesYAMLSideCarsAndStorageDir(t *testing.T) {
	root := t.TempDir()
	yamlPath := filepath.Join(root, "cluster.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("machines: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cluster.env"), []byte("FOO=bar\n"), 0o644))

	storageDir := filepath.Join(root, ".mch")
	require.NoError(t, os.MkdirAll(storageDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(storageDir, "cache.json"), []byte("{}"), 0o644))

	zipPath := filepath.Join(root, "out.zip")
	require.NoError(t, Archive(yamlPath, storageDir, zipPath))

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	assert.True(t, names["cluster.yml"])
	assert.True(t, names[".cluster.env"])
	assert.True(t, names[filepath.Join(".mch", "cache.json")])
	assert.False(t, names[".cluster.swt"])
}

func TestZapRemovesSideCarsAndStorageDir(t *testing.T) {
	root := t.TempDir()
	yamlPath := filepath.Join(root, "cluster.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("machines: {}\n"), 0o644))
	envPath := filepath.Join(root, ".cluster.env")
	require.NoError(t, os.WriteFile(envPath, []byte("FOO=bar\n"), 0o644))

	storageDir := filepath.Join(root, ".mch")
	require.NoError(t, os.MkdirAll(storageDir, 0o755))

	require.NoError(t, Zap(yamlPath, storageDir))

	_, err := os.Stat(envPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(storageDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(yamlPath)
	assert.NoError(t, err, "pack only zaps side-cars and storage, not the cluster yaml itself")
}
