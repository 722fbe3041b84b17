// Package discovery maintains the per-cluster `.NAME.env` side-car file:
// namespaced KEY=VAL lines giving every running machine's interface
// addresses, rewritten after every state-changing operation (§4.7).
package discovery

import (
	"fmt"
	"strings"

	"github.com/efrecon/machinery/pkg/environment"
	"github.com/efrecon/machinery/pkg/unixremote"
)

// DefaultPrefix is the namespace prefix used when Config.Prefix is empty.
const DefaultPrefix = "MACHINERY"

// Config controls the key prefix and file path.
type Config struct {
	Prefix string // default DefaultPrefix
	Path   string // the .NAME.env side-car path
}

func (c Config) prefix() string {
	if c.Prefix == "" {
		return DefaultPrefix
	}
	return c.Prefix
}

// Update rewrites the discovery cache for one machine: removes every key
// belonging to it (and its aliases), then, if running, re-adds keys for
// every non-virtual interface plus the summary IP/HOSTNAME keys. A
// non-running machine therefore leaves only the removal in effect, the
// "stale key removal" property §8 tests.
func Update(cfg Config, machineName string, aliases []string, running bool, interfaces []unixremote.InterfaceAddress, mainIP, mainHostname string) error {
	vars, err := environment.ReadFile(cfg.Path)
	if err != nil {
		return fmt.Errorf("update discovery cache: %w", err)
	}

	names := append([]string{machineName}, aliases...)
	for _, name := range names {
		removeKeysFor(vars, cfg.prefix(), name)
	}

	if running {
		for _, name := range names {
			addKeysFor(vars, cfg.prefix(), name, interfaces, mainIP, mainHostname)
		}
	}

	return environment.WriteFile(cfg.Path, vars)
}

func removeKeysFor(vars map[string]string, prefix, name string) {
	marker := keyPrefix(prefix, name)
	for k := range vars {
		if strings.HasPrefix(k, marker) {
			delete(vars, k)
		}
	}
}

func addKeysFor(vars map[string]string, prefix, name string, interfaces []unixremote.InterfaceAddress, mainIP, mainHostname string) {
	marker := keyPrefix(prefix, name)
	for _, iface := range interfaces {
		if strings.HasPrefix(iface.Name, "v") {
			continue // virtual interfaces are skipped (§4.7)
		}
		ifaceKey := strings.ToUpper(sanitize(iface.Name))
		if iface.IPv4 != "" {
			vars[marker+ifaceKey+"_INET"] = iface.IPv4
		}
		if iface.IPv6 != "" {
			vars[marker+ifaceKey+"_INET6"] = iface.IPv6
		}
	}
	if mainIP != "" {
		vars[marker+"IP"] = mainIP
	}
	if mainHostname != "" {
		vars[marker+"HOSTNAME"] = mainHostname
	}
}

func keyPrefix(prefix, name string) string {
	return strings.ToUpper(prefix) + "_" + strings.ToUpper(sanitize(name)) + "_"
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
