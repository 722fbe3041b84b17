package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/cache"
	"github.com/efrecon/machinery/pkg/toolrunner"
)

func TestDriverOptionsCachesAcrossCalls(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutDriverOptions(cache.DriverOptions{
		Driver:  "virtualbox",
		Options: []string{"virtualbox-cpu-count", "virtualbox-memory"},
	}))

	m := &Manager{Runner: &toolrunner.Runner{}, Cache: store, Config: DefaultConfig()}
	options, err := m.DriverOptions(context.Background(), "virtualbox")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"virtualbox-cpu-count", "virtualbox-memory"}, options)
}

func TestValidateOptionsReportsUnknown(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.PutDriverOptions(cache.DriverOptions{
		Driver:  "virtualbox",
		Options: []string{"virtualbox-cpu-count"},
	}))

	m := &Manager{Runner: &toolrunner.Runner{}, Cache: store, Config: DefaultConfig()}
	unknown, err := m.ValidateOptions(context.Background(), "virtualbox", map[string]string{
		"virtualbox-cpu-count": "2",
		"virtualbox-bogus":     "1",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"virtualbox-bogus"}, unknown)
}
