package toolrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := New()
	result, err := runner.Run(context.Background(), "echo", []string{"hello", "machinery"}, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, []string{"hello machinery"}, result.Lines)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	runner := New()
	result, err := runner.Run(context.Background(), "sh", []string{"-c", "exit 3"}, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, result.ExitCode)
}

func TestRunMergeStderr(t *testing.T) {
	runner := New()
	result, err := runner.Run(context.Background(), "sh", []string{"-c", "echo out; echo err 1>&2"}, Options{MergeStderr: true})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"out", "err"}, result.Lines)
}

func TestTempNameIsUnique(t *testing.T) {
	a := TempName("machinery")
	b := TempName("machinery")
	require.NotEqual(t, a, b)
}
