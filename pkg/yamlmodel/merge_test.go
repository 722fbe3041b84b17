package yamlmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeScalarReplace(t *testing.T) {
	base := map[string]interface{}{"driver": "virtualbox", "cpu": 1}
	overlay := map[string]interface{}{"cpu": 2}
	merged := Merge(base, overlay).(map[string]interface{})
	require.Equal(t, "virtualbox", merged["driver"])
	require.Equal(t, 2, merged["cpu"])
}

func TestMergeListsConcatenate(t *testing.T) {
	base := map[string]interface{}{"images": []interface{}{"alpine"}}
	overlay := map[string]interface{}{"images": []interface{}{"nginx"}}
	merged := Merge(base, overlay).(map[string]interface{})
	require.Equal(t, []interface{}{"alpine", "nginx"}, merged["images"])
}

func TestMergeMapsDeep(t *testing.T) {
	base := map[string]interface{}{
		"labels": map[string]interface{}{"zone": "a", "tier": "web"},
	}
	overlay := map[string]interface{}{
		"labels": map[string]interface{}{"zone": "b"},
	}
	merged := Merge(base, overlay).(map[string]interface{})
	labels := merged["labels"].(map[string]interface{})
	require.Equal(t, "b", labels["zone"])
	require.Equal(t, "web", labels["tier"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := map[string]interface{}{"cpu": 1}
	overlay := map[string]interface{}{"cpu": 2}
	Merge(base, overlay)
	require.Equal(t, 1, base["cpu"])
	require.Equal(t, 2, overlay["cpu"])
}

func TestMergeConfluentForAcyclicChain(t *testing.T) {
	a := map[string]interface{}{"cpu": 1, "memory": 512}
	b := map[string]interface{}{"memory": 1024}
	c := map[string]interface{}{"driver": "virtualbox"}

	left := Merge(Merge(a, b), c).(map[string]interface{})
	right := Merge(a, Merge(b, c)).(map[string]interface{})
	require.Equal(t, left, right)
}
