// Package virtualbox wraps the small set of `VBoxManage` operations the
// core invokes directly, outside of what `docker-machine`'s virtualbox
// driver already covers: adding a port-forward or shared folder to a
// running-or-stopped VM, and a graceful halt with a power-off fallback.
// Everything else about the VM's lifecycle goes through docker-machine.
package virtualbox

import (
	"context"
	"fmt"
	"time"

	"github.com/efrecon/machinery/pkg/toolrunner"
)

const tool = "VBoxManage"

// Controller drives VBoxManage for one VM name.
type Controller struct {
	Runner *toolrunner.Runner
}

// New returns a Controller using runner to invoke VBoxManage.
func New(runner *toolrunner.Runner) *Controller {
	return &Controller{Runner: runner}
}

func (c *Controller) run(ctx context.Context, argv []string) (toolrunner.Result, error) {
	return c.Runner.Run(ctx, tool, argv, toolrunner.Options{})
}

// AddPortForward adds a NAT port-forwarding rule named ruleName to vm's
// first NIC. The VM may be running; natpf1 applies live.
func (c *Controller) AddPortForward(ctx context.Context, vm, ruleName, protocol string, hostPort, guestPort int) error {
	rule := fmt.Sprintf("%s,%s,,%d,,%d", ruleName, protocol, hostPort, guestPort)
	_, err := c.run(ctx, []string{"controlvm", vm, "natpf1", rule})
	if err != nil {
		return fmt.Errorf("add port-forward %s on %s: %w", ruleName, vm, err)
	}
	return nil
}

// AddSharedFolder attaches a host path as a shared folder, with automount
// enabled so the guest sees it without an explicit `mount` from the vboxsf
// engine's perspective beyond the mount call itself. The VM must be
// powered off for sharedfolder add to succeed; the share engine is
// responsible for halting it first.
func (c *Controller) AddSharedFolder(ctx context.Context, vm, shareName, hostPath string) error {
	_, err := c.run(ctx, []string{
		"sharedfolder", "add", vm,
		"--name", shareName,
		"--hostpath", hostPath,
		"--automount",
	})
	if err != nil {
		return fmt.Errorf("add shared folder %s on %s: %w", shareName, vm, err)
	}
	return nil
}

// GracefulHalt asks the guest OS to shut down via ACPI power button, waits
// up to timeout for the VM to reach poweroff, and force-powers it off if it
// hasn't by then.
func (c *Controller) GracefulHalt(ctx context.Context, vm string, timeout time.Duration, poll time.Duration) error {
	if _, err := c.run(ctx, []string{"controlvm", vm, "acpipowerbutton"}); err != nil {
		return fmt.Errorf("acpi power button on %s: %w", vm, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		state, err := c.State(ctx, vm)
		if err == nil && state == "poweroff" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}

	if _, err := c.run(ctx, []string{"controlvm", vm, "poweroff"}); err != nil {
		return fmt.Errorf("force poweroff %s: %w", vm, err)
	}
	return nil
}

// State returns the VM's current VBoxManage state string (e.g. "running",
// "poweroff", "saved"), parsed from `showvminfo --machinereadable`.
func (c *Controller) State(ctx context.Context, vm string) (string, error) {
	result, err := c.run(ctx, []string{"showvminfo", vm, "--machinereadable"})
	if err != nil {
		return "", fmt.Errorf("showvminfo %s: %w", vm, err)
	}
	for _, line := range result.Lines {
		if value, ok := cutPrefixQuoted(line, "VMState="); ok {
			return value, nil
		}
	}
	return "", fmt.Errorf("showvminfo %s: VMState not found in output", vm)
}

func cutPrefixQuoted(line, prefix string) (string, bool) {
	if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
		return "", false
	}
	value := line[len(prefix):]
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return value, true
}
