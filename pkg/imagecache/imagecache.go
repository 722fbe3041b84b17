// Package imagecache implements the image pull/compare/save/scp/load
// caching strategy of §4.5: an image is cached unless the first matching
// cache hint turns caching off or caching is disabled globally. A cached
// image is pulled once against a caching endpoint, compared by digest
// against the target, and only transferred when the two disagree; an
// uncached one is pulled straight over SSH on the target.
package imagecache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/toolrunner"
)

// DisableAll is the global `-cache -` sentinel.
const DisableAll = "-"

// Hint is one `caching: [pattern hint ...]` table entry.
type Hint struct {
	Pattern string
	Cache   bool
}

// Resolve returns whether image should be cached, matching hints in order
// and defaulting to true (caching on) when nothing matches. globalDisable
// being DisableAll overrides everything to false.
func Resolve(hints []Hint, image, globalDisable string) bool {
	if globalDisable == DisableAll {
		return false
	}
	for _, hint := range hints {
		if matchesPattern(hint.Pattern, image) {
			return hint.Cache
		}
	}
	return true
}

// ParseHints parses the `caching: [pattern hint ...]` table (§4.5) from its
// `--cache-hint PATTERN=BOOL` CLI flag form, e.g. "alpine*=false". Order is
// preserved so the first match still wins in Resolve.
func ParseHints(entries []string) ([]Hint, error) {
	hints := make([]Hint, 0, len(entries))
	for _, entry := range entries {
		pattern, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("caching hint %q: expected PATTERN=BOOL", entry)
		}
		cache, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("caching hint %q: %w", entry, err)
		}
		hints = append(hints, Hint{Pattern: pattern, Cache: cache})
	}
	return hints, nil
}

func matchesPattern(pattern, image string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(image, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == image
}

// Engine pulls/transfers images for a machine, using runner for both the
// caching endpoint and the target machine's SSH session.
type Engine struct {
	Lifecycle *lifecycle.Manager
}

// Ensure makes image present on targetMachine (reachable at targetEndpoint),
// either via the cache-and-transfer path or a direct remote pull (§4.5).
func (e *Engine) Ensure(ctx context.Context, image, targetMachine string, targetEndpoint, cachingEndpoint lifecycle.Endpoint, cached bool) error {
	if !cached {
		_, err := e.Lifecycle.SSH(ctx, targetMachine, []string{"docker", "pull", image})
		if err != nil {
			return fmt.Errorf("pull %s on %s: %w", image, targetMachine, err)
		}
		return nil
	}
	return e.ensureCached(ctx, image, targetMachine, targetEndpoint, cachingEndpoint)
}

func (e *Engine) ensureCached(ctx context.Context, image, targetMachine string, targetEndpoint, cachingEndpoint lifecycle.Endpoint) error {
	if _, err := e.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"pull", image}, toolrunner.Options{Env: cachingEndpoint.Env()}); err != nil {
		return fmt.Errorf("pull %s on caching endpoint: %w", image, err)
	}

	localDigest, err := e.imageDigest(ctx, image, cachingEndpoint)
	if err != nil {
		return fmt.Errorf("digest %s: %w", image, err)
	}
	remoteDigest, err := e.imageDigest(ctx, image, targetEndpoint)
	if err == nil && remoteDigest != "" && remoteDigest == localDigest {
		return nil // identical, nothing to transfer
	}

	return e.transfer(ctx, image, targetMachine, cachingEndpoint)
}

func (e *Engine) imageDigest(ctx context.Context, image string, endpoint lifecycle.Endpoint) (string, error) {
	result, err := e.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"images", "-q", "--no-trunc", image}, toolrunner.Options{Env: endpoint.Env()})
	if err != nil {
		return "", err
	}
	for _, line := range result.Lines {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
	}
	return "", nil
}

func (e *Engine) transfer(ctx context.Context, image, targetMachine string, cachingEndpoint lifecycle.Endpoint) error {
	tmp, err := os.CreateTemp("", "machinery-image-*.tar")
	if err != nil {
		return fmt.Errorf("transfer %s: %w", image, err)
	}
	localTar := tmp.Name()
	tmp.Close()
	defer os.Remove(localTar)

	if _, err := e.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, []string{"save", "-o", localTar, image}, toolrunner.Options{Env: cachingEndpoint.Env()}); err != nil {
		return fmt.Errorf("save %s: %w", image, err)
	}

	remoteTar := "/tmp/machinery-image.tar"
	if _, err := e.Lifecycle.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"scp", localTar, targetMachine + ":" + remoteTar}, toolrunner.Options{}); err != nil {
		return fmt.Errorf("scp %s: %w", image, err)
	}
	defer func() { _, _ = e.Lifecycle.SSH(ctx, targetMachine, []string{"rm", "-f", remoteTar}) }()

	if _, err := e.Lifecycle.SSH(ctx, targetMachine, []string{"docker", "load", "-i", remoteTar}); err != nil {
		return fmt.Errorf("load %s on %s: %w", image, targetMachine, err)
	}
	return nil
}
