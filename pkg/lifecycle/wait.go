package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/efrecon/machinery/pkg/toolrunner"
)

// WaitSSH polls `docker-machine ssh name echo ok` until it succeeds or the
// configured retry budget is exhausted.
func (m *Manager) WaitSSH(ctx context.Context, name string) error {
	retries := m.Config.SSHRetries
	delay := m.Config.SSHRetryDelay
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"ssh", name, "echo", "ok"}, toolrunner.Options{})
		if err == nil && result.ExitCode == 0 {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ssh on %s not ready after %d attempts: %w", name, retries, lastErr)
}

// WaitState polls `docker-machine ls` until name's state is a member of
// acceptable, sleeping delay between attempts. It returns the reached
// state, or "" if the retry budget is exhausted (a give-up result per
// §5, not an error).
func (m *Manager) WaitState(ctx context.Context, name string, acceptable []string, retries int, delay time.Duration) (string, error) {
	if retries <= 0 {
		retries = m.Config.WaitRetries
	}
	if delay <= 0 {
		delay = m.Config.WaitRetryDelay
	}

	for attempt := 0; attempt < retries; attempt++ {
		rows, err := m.listMachines(ctx)
		if err == nil {
			for _, row := range rows {
				if row["name"] != name {
					continue
				}
				for _, want := range acceptable {
					if row["state"] == want {
						return row["state"], nil
					}
				}
			}
		}
		if attempt < retries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return "", nil
}

func (m *Manager) listMachines(ctx context.Context) ([]map[string]string, error) {
	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"ls"}, toolrunner.Options{})
	if err != nil {
		return nil, err
	}
	return toolrunner.ParseTable(result.Lines, nil), nil
}
