package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/efrecon/machinery/pkg/cache"
	"github.com/efrecon/machinery/pkg/toolrunner"
)

// DriverOptions returns the `--driver-*` flags docker-machine's create
// subcommand recognizes for driver, discovering them once via `--help` and
// caching the result (§4.2: "validated against the driver's live option
// list (discovered once and cached)"). A nil Cache always re-probes.
func (m *Manager) DriverOptions(ctx context.Context, driver string) ([]string, error) {
	if m.Cache != nil {
		if cached, ok, err := m.Cache.GetDriverOptions(driver); err == nil && ok {
			return cached.Options, nil
		}
	}

	result, err := m.Runner.Run(ctx, toolrunner.ToolDockerMachine,
		[]string{"create", "--driver", driver, "--help"}, toolrunner.Options{})
	if err != nil {
		return nil, fmt.Errorf("discover options for driver %s: %w", driver, err)
	}
	optionSet := toolrunner.ParseOptions(strings.Join(result.Lines, "\n"))
	options := make([]string, 0, len(optionSet))
	for name := range optionSet {
		options = append(options, name)
	}

	if m.Cache != nil {
		_ = m.Cache.PutDriverOptions(cache.DriverOptions{
			Driver:   driver,
			Options:  options,
			CachedAt: time.Now(),
		})
	}
	return options, nil
}

// ValidateOptions checks every key in opts against driver's discovered
// option set, returning the unrecognized ones (callers log a warning and
// forward them anyway, per §4.1's "unknown keys produce a warning, never an
// error" posture applied uniformly to driver options too).
func (m *Manager) ValidateOptions(ctx context.Context, driver string, opts map[string]string) ([]string, error) {
	known, err := m.DriverOptions(ctx, driver)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}

	var unknown []string
	for key := range opts {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	return unknown, nil
}
