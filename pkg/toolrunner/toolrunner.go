// Package toolrunner is the uniform subprocess boundary machinery runs
// docker, docker-machine, and docker-compose through (§4.9). Every other
// package that needs to shell out to one of those three binaries goes
// through a Runner instead of calling os/exec directly, so logging,
// timeouts, and logrus-line collapsing are handled in exactly one place.
package toolrunner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/metrics"
)

// Tool names recognized by the runner; EmitToolLine's logrus collapsing
// only applies to ToolDockerMachine.
const (
	ToolDocker        = "docker"
	ToolDockerMachine = "docker-machine"
	ToolCompose       = "docker-compose"
)

// Options controls a single invocation.
type Options struct {
	// Dir runs the command in a specific working directory, overriding
	// Runner.Dir for this call only.
	Dir string
	// Stdin, when non-nil, is piped to the child's standard input.
	Stdin []byte
	// MergeStderr folds stderr into the same captured line stream as
	// stdout (the `-stderr` flag of the original tool runner).
	MergeStderr bool
	// KeepBlanks keeps blank lines in the returned Result.Lines instead of
	// dropping them (the `-keepblanks` flag).
	KeepBlanks bool
	// Timeout bounds the whole invocation; zero means Runner.Timeout.
	Timeout time.Duration
	// Env adds/overrides environment variables for this invocation only,
	// on top of the process environment (e.g. a docker Endpoint's
	// DOCKER_HOST/DOCKER_CERT_PATH/DOCKER_TLS_VERIFY/DOCKER_MACHINE_NAME).
	Env map[string]string
}

// Result is the outcome of one invocation.
type Result struct {
	Lines    []string // captured stdout (and stderr if MergeStderr), one entry per line
	Stderr   []string // captured stderr, when not merged
	ExitCode int
	Duration time.Duration
}

// Runner invokes one of the three external tools with a configurable path
// override per tool (so callers can point at a non-PATH binary) and a
// default per-call timeout.
type Runner struct {
	// Paths overrides the binary invoked for a tool name; absent entries
	// fall back to the bare tool name resolved via PATH.
	Paths map[string]string
	// Dir is the default working directory for every invocation.
	Dir string
	// Timeout is the default per-call timeout; zero means no timeout.
	Timeout time.Duration
}

// New returns a Runner with no path overrides and no timeout.
func New() *Runner {
	return &Runner{Paths: map[string]string{}}
}

// Run invokes tool with argv, honoring opts, and returns the captured
// output. A non-zero exit code is not itself an error: Result.ExitCode
// carries it and callers decide whether that is fatal (§7's "tool-reported
// errors" are the caller's to classify, not the runner's).
func (r *Runner) Run(ctx context.Context, tool string, argv []string, opts Options) (Result, error) {
	timer := metrics.NewTimer()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = r.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	binary := tool
	if p, ok := r.Paths[tool]; ok && p != "" {
		binary = p
	}

	cmd := exec.CommandContext(ctx, binary, argv...)
	dir := opts.Dir
	if dir == "" {
		dir = r.Dir
	}
	cmd.Dir = dir

	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	if len(opts.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if opts.MergeStderr {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}

	log.WithComponent("toolrunner").Debug().
		Str("tool", tool).
		Strs("argv", argv).
		Msg("invoking")

	runErr := cmd.Run()

	result := Result{
		Lines:    splitLines(stdout.String(), opts.KeepBlanks),
		Stderr:   splitLines(stderr.String(), opts.KeepBlanks),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: timer.Duration(),
	}

	for _, line := range result.Lines {
		log.EmitToolLine(tool, line)
	}

	outcome := "ok"
	if runErr != nil || result.ExitCode != 0 {
		outcome = "error"
	}
	metrics.ToolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
	timer.ObserveDurationVec(metrics.ToolInvocationDuration, tool)

	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return result, fmt.Errorf("invoke %s %s: %w", tool, strings.Join(argv, " "), runErr)
		}
	}
	return result, nil
}

// Version runs `tool version`/`tool --version` and returns its first
// output line, the value §6 says is auto-detected and cached once per
// process.
func (r *Runner) Version(ctx context.Context, tool string) (string, error) {
	result, err := r.Run(ctx, tool, []string{"--version"}, Options{})
	if err != nil {
		return "", err
	}
	if len(result.Lines) == 0 {
		return "", fmt.Errorf("%s --version: no output", tool)
	}
	return result.Lines[0], nil
}

// Relatively runs fn with the Runner's default directory temporarily set
// to dir, restoring the previous value afterward even if fn panics. Older
// docker-machine releases refuse a non-cwd storage path, so some callers
// need the working directory itself to change rather than passing a flag.
func (r *Runner) Relatively(dir string, fn func() error) error {
	previous := r.Dir
	r.Dir = dir
	defer func() { r.Dir = previous }()
	return fn()
}

// TempName returns a unique name of the form prefix-pid-random, the shape
// §5 mandates for remote temp files/directories.
func TempName(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, os.Getpid(), uuid.NewString()[:8])
}

func splitLines(s string, keepBlanks bool) []string {
	if s == "" {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !keepBlanks && strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
