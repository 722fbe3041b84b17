// Package unixremote wraps the small set of commands machinery runs over
// `docker-machine ssh` to inspect a guest: process list, mount table,
// identity, interface addresses, and OS release info (§2's "Unix Remote"
// component). It is a thin layer over pkg/toolrunner's ToolDockerMachine
// path, not a general SSH client.
package unixremote

import (
	"context"
	"fmt"
	"strings"

	"github.com/efrecon/machinery/pkg/toolrunner"
)

// Remote runs fixed remote commands against one machine over `docker-
// machine ssh`.
type Remote struct {
	Runner  *toolrunner.Runner
	Machine string
}

// New returns a Remote bound to machine, using runner to invoke ssh.
func New(runner *toolrunner.Runner, machine string) *Remote {
	return &Remote{Runner: runner, Machine: machine}
}

func (r *Remote) ssh(ctx context.Context, command string) (toolrunner.Result, error) {
	return r.Runner.Run(ctx, toolrunner.ToolDockerMachine,
		[]string{"ssh", r.Machine, command}, toolrunner.Options{})
}

// Ps returns the raw lines of `ps aux` on the guest.
func (r *Remote) Ps(ctx context.Context) ([]string, error) {
	result, err := r.ssh(ctx, "ps aux")
	if err != nil {
		return nil, fmt.Errorf("ps on %s: %w", r.Machine, err)
	}
	return result.Lines, nil
}

// Mount returns the raw lines of `mount` on the guest, used to verify a
// vboxsf mount landed (§4.6).
func (r *Remote) Mount(ctx context.Context) ([]string, error) {
	result, err := r.ssh(ctx, "mount")
	if err != nil {
		return nil, fmt.Errorf("mount on %s: %w", r.Machine, err)
	}
	return result.Lines, nil
}

// ID returns the numeric uid of the SSH user on the guest, needed for the
// `uid=` option of a vboxsf mount.
func (r *Remote) ID(ctx context.Context) (string, error) {
	result, err := r.ssh(ctx, "id -u")
	if err != nil {
		return "", fmt.Errorf("id on %s: %w", r.Machine, err)
	}
	if len(result.Lines) == 0 {
		return "", fmt.Errorf("id on %s: no output", r.Machine)
	}
	return strings.TrimSpace(result.Lines[0]), nil
}

// InterfaceAddress is one `ifconfig`-reported interface and its addresses.
type InterfaceAddress struct {
	Name string
	IPv4 string
	IPv6 string
}

// Ifconfig parses `ifconfig` output on the guest into one InterfaceAddress
// per interface. Interfaces whose name starts with "v" (virtual bridges,
// per §4.7) are included here; callers filter them out at the discovery
// layer where that rule is explicit.
func (r *Remote) Ifconfig(ctx context.Context) ([]InterfaceAddress, error) {
	result, err := r.ssh(ctx, "ifconfig")
	if err != nil {
		return nil, fmt.Errorf("ifconfig on %s: %w", r.Machine, err)
	}
	return parseIfconfig(result.Lines), nil
}

func parseIfconfig(lines []string) []InterfaceAddress {
	var out []InterfaceAddress
	var current *InterfaceAddress
	for _, line := range lines {
		if len(line) > 0 && line[0] != ' ' && line[0] != '\t' {
			name := strings.Fields(line)[0]
			name = strings.TrimSuffix(name, ":")
			out = append(out, InterfaceAddress{Name: name})
			current = &out[len(out)-1]
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if idx := strings.Index(trimmed, "inet6 "); idx >= 0 {
			fields := strings.Fields(trimmed[idx+len("inet6 "):])
			if len(fields) > 1 && fields[0] == "addr:" {
				fields = fields[1:]
			}
			if len(fields) > 0 {
				current.IPv6 = fields[0]
			}
		} else if idx := strings.Index(trimmed, "inet "); idx >= 0 {
			fields := strings.Fields(trimmed[idx+len("inet "):])
			if len(fields) > 0 {
				current.IPv4 = strings.TrimPrefix(fields[0], "addr:")
			}
		}
	}
	return out
}

// OSRelease reads /etc/os-release on the guest and returns its ID field
// (e.g. "ubuntu", "boot2docker"), used to pick a package manager in §4.6.
func (r *Remote) OSRelease(ctx context.Context) (string, error) {
	result, err := r.ssh(ctx, "cat /etc/os-release")
	if err != nil {
		return "", fmt.Errorf("os-release on %s: %w", r.Machine, err)
	}
	for _, line := range result.Lines {
		if id, ok := strings.CutPrefix(line, "ID="); ok {
			return strings.Trim(id, `"`), nil
		}
	}
	return "", nil
}
