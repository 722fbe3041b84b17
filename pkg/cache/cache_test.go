package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverOptionsRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.GetDriverOptions("virtualbox")
	require.NoError(t, err)
	require.False(t, ok)

	err = store.PutDriverOptions(DriverOptions{
		Driver:  "virtualbox",
		Options: []string{"virtualbox-cpu-count", "virtualbox-memory", "virtualbox-disk-size"},
	})
	require.NoError(t, err)

	got, ok, err := store.GetDriverOptions("virtualbox")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "virtualbox", got.Driver)
	require.Len(t, got.Options, 3)
}

func TestToolVersionRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.PutToolVersion(ToolVersion{Tool: "docker-machine", Version: "0.16.2"})
	require.NoError(t, err)

	got, ok, err := store.GetToolVersion("docker-machine")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.16.2", got.Version)

	_, ok, err = store.GetToolVersion("docker-compose")
	require.NoError(t, err)
	require.False(t, ok)
}
