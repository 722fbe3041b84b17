package virtualbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCutPrefixQuoted(t *testing.T) {
	value, ok := cutPrefixQuoted(`VMState="poweroff"`, "VMState=")
	require.True(t, ok)
	require.Equal(t, "poweroff", value)
}

func TestCutPrefixQuotedNoMatch(t *testing.T) {
	_, ok := cutPrefixQuoted(`name="proj-n1"`, "VMState=")
	require.False(t, ok)
}
