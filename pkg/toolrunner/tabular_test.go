package toolrunner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTableDockerMachineLs(t *testing.T) {
	lines := []string{
		"NAME         ACTIVE   DRIVER       STATE     URL                         SWARM",
		"proj-n1      *        virtualbox   Running   tcp://192.168.99.100:2376   ",
		"proj-master  -        virtualbox   Running   tcp://192.168.99.101:2376   proj-master (master)",
	}

	rows := ParseTable(lines, nil)
	require.Len(t, rows, 2)
	require.Equal(t, "proj-n1", rows[0]["name"])
	require.Equal(t, "*", rows[0]["active"])
	require.Equal(t, "virtualbox", rows[0]["driver"])
	require.Equal(t, "Running", rows[0]["state"])
	require.Contains(t, rows[1]["swarm"], "proj-master")
}

func TestParseTableHeaderOverride(t *testing.T) {
	lines := []string{
		"CONTAINER ID   IMAGE     STATUS",
		"abc123         alpine    Up 2 minutes",
	}
	rows := ParseTable(lines, map[string]string{"CONTAINER ID": "CONTAINER_ID"})
	require.Len(t, rows, 1)
	require.Equal(t, "abc123", rows[0]["CONTAINER_ID"])
	require.Equal(t, "alpine", rows[0]["image"])
}

func TestParseTableEmpty(t *testing.T) {
	require.Nil(t, ParseTable(nil, nil))
}
