package toolrunner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	help := `
Usage: docker-machine create --driver virtualbox [OPTIONS] [arg...]

Options:
   --virtualbox-cpu-count "1"       Number of CPUs
   --virtualbox-memory "1024"       Size of memory for host in MB
   --virtualbox-disk-size "20000"   Size of disk for host in MB
`
	opts := ParseOptions(help)
	require.True(t, opts["virtualbox-cpu-count"])
	require.True(t, opts["virtualbox-memory"])
	require.True(t, opts["virtualbox-disk-size"])
	require.False(t, opts["virtualbox-nonexistent"])
}
