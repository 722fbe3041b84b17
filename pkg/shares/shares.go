// Package shares implements the two host↔guest share engines §4.6 names:
// vboxsf (VirtualBox shared folders) and rsync (everything else), plus the
// bidirectional `sync` operation built on the rsync engine.
package shares

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/mountvfs"
	"github.com/efrecon/machinery/pkg/toolrunner"
	"github.com/efrecon/machinery/pkg/types"
	"github.com/efrecon/machinery/pkg/virtualbox"
)

// Type is a share engine kind.
type Type string

const (
	TypeVBoxSF Type = "vboxsf"
	TypeRsync  Type = "rsync"
)

// driverDefaultType maps a machine driver to its default share type when a
// Share spec doesn't say (§4.6).
func driverDefaultType(driver string) Type {
	if driver == "virtualbox" {
		return TypeVBoxSF
	}
	return TypeRsync
}

// ResolveType returns the effective share type for spec on a machine
// created with driver, validating it is one of the two allowed types.
func ResolveType(spec types.Share, driver string) (Type, error) {
	raw := spec.Options["type"]
	if raw == "" {
		return driverDefaultType(driver), nil
	}
	t := Type(raw)
	if t != TypeVBoxSF && t != TypeRsync {
		return "", fmt.Errorf("share type %q not supported (only vboxsf, rsync)", raw)
	}
	return t, nil
}

// VBoxSFEngine mounts a VirtualBox shared folder inside the guest and makes
// it survive reboots by rewriting boot2docker's bootlocal.sh.
type VBoxSFEngine struct {
	Lifecycle  *lifecycle.Manager
	VBoxManage *virtualbox.Controller
}

const (
	bootlocalPath  = "/var/lib/boot2docker/bootlocal.sh"
	markerBegin    = "# >>> machinery shares >>>"
	markerEnd      = "# <<< machinery shares <<<"
)

// Mount attaches host share on vm at guest, halting and restarting the VM
// as VBoxManage's sharedfolder add requires (§4.6).
func (e *VBoxSFEngine) Mount(ctx context.Context, vm string, share types.Share) error {
	shareName := sanitizeShareName(share.Guest)

	host, err := mountvfs.ResolveHost(share.Host)
	if err != nil {
		return fmt.Errorf("mount share %s: %w", share.Guest, err)
	}

	if state, err := e.VBoxManage.State(ctx, vm); err == nil && state == "running" {
		if err := e.Lifecycle.Halt(ctx, vm); err != nil {
			return fmt.Errorf("mount share %s: halt before add: %w", share.Guest, err)
		}
	}

	if err := e.VBoxManage.AddSharedFolder(ctx, vm, shareName, host); err != nil {
		return fmt.Errorf("mount share %s: %w", share.Guest, err)
	}

	if err := e.Lifecycle.Start(ctx, vm); err != nil {
		return fmt.Errorf("mount share %s: start after add: %w", share.Guest, err)
	}
	if err := e.Lifecycle.WaitSSH(ctx, vm); err != nil {
		return fmt.Errorf("mount share %s: %w", share.Guest, err)
	}

	mountCmd := fmt.Sprintf("mount -t vboxsf -o uid=%s %s %s", uidOption(share), shareName, share.Guest)
	cmds := []string{
		fmt.Sprintf("mkdir -p %s", share.Guest),
		mountCmd,
	}
	for _, cmd := range cmds {
		if _, err := e.Lifecycle.SSH(ctx, vm, []string{"sh", "-c", cmd}); err != nil {
			return fmt.Errorf("mount share %s: %w", share.Guest, err)
		}
	}

	lines, err := e.Lifecycle.SSH(ctx, vm, []string{"mount"})
	if err != nil {
		return fmt.Errorf("verify mount %s: %w", share.Guest, err)
	}
	if !containsSubstring(lines, share.Guest) {
		return fmt.Errorf("verify mount %s: not present in mount output", share.Guest)
	}

	return e.persistAcrossReboot(ctx, vm, mountCmd, share.Guest)
}

func uidOption(share types.Share) string {
	if uid := share.Options["uid"]; uid != "" {
		return uid
	}
	return "1000"
}

// persistAcrossReboot rewrites bootlocal.sh between marker comments so every
// mount the engine has made is recreated on the next boot. The file is
// created with a shebang if it doesn't exist yet.
func (e *VBoxSFEngine) persistAcrossReboot(ctx context.Context, vm, mountCmd, guest string) error {
	lines, _ := e.Lifecycle.SSH(ctx, vm, []string{"cat", bootlocalPath})

	existing := map[string]bool{}
	var preamble, other []string
	inBlock := false
	for _, line := range lines {
		switch {
		case line == markerBegin:
			inBlock = true
			continue
		case line == markerEnd:
			inBlock = false
			continue
		case inBlock:
			existing[line] = true
			continue
		default:
			if strings.HasPrefix(line, "#!") {
				preamble = append(preamble, line)
			} else {
				other = append(other, line)
			}
		}
	}
	if len(preamble) == 0 {
		preamble = []string{"#!/bin/sh"}
	}
	existing[fmt.Sprintf("mkdir -p %s", guest)] = true
	existing[mountCmd] = true

	var block []string
	block = append(block, preamble...)
	block = append(block, other...)
	block = append(block, markerBegin)
	for line := range existing {
		block = append(block, line)
	}
	block = append(block, markerEnd)

	script := strings.Join(block, "\n") + "\n"
	_, err := e.Lifecycle.SSH(ctx, vm, []string{"sh", "-c", fmt.Sprintf("cat > %s << 'MACHINERY_EOF'\n%sMACHINERY_EOF\nchmod +x %s", bootlocalPath, script, bootlocalPath)})
	if err != nil {
		return fmt.Errorf("persist share across reboot: %w", err)
	}
	return nil
}

func sanitizeShareName(guest string) string {
	return strings.Trim(strings.ReplaceAll(guest, "/", "_"), "_")
}

func containsSubstring(lines []string, needle string) bool {
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// SyncDirection is which way a `sync` operation copies.
type SyncDirection string

const (
	SyncGet SyncDirection = "get" // guest -> host
	SyncPut SyncDirection = "put" // host -> guest
)

// RsyncEngine mounts a share by detecting and installing rsync on the guest,
// extracting docker-machine's real SSH invocation, and running rsync over it.
type RsyncEngine struct {
	Lifecycle *lifecycle.Manager
}

// installerFor picks a package manager command for osID, per §4.6's
// debian/ubuntu → apt-get, boot2docker → tce-load table; anything else is
// unsupported and logged by the caller.
func installerFor(osID string) (string, bool) {
	switch osID {
	case "debian", "ubuntu":
		return "apt-get update && apt-get install -y rsync", true
	case "boot2docker":
		return "tce-load -wi rsync", true
	default:
		return "", false
	}
}

// EnsureInstalled detects the guest's OS id and installs rsync if missing.
func (e *RsyncEngine) EnsureInstalled(ctx context.Context, vm, osID string) error {
	lines, err := e.Lifecycle.SSH(ctx, vm, []string{"sh", "-c", "command -v rsync"})
	if err == nil && containsNonEmpty(lines) {
		return nil
	}

	installer, ok := installerFor(osID)
	if !ok {
		return fmt.Errorf("install rsync on %s: no known installer for os %q", vm, osID)
	}
	if _, err := e.Lifecycle.SSH(ctx, vm, []string{"sh", "-c", installer}); err != nil {
		return fmt.Errorf("install rsync on %s: %w", vm, err)
	}
	return nil
}

func containsNonEmpty(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// sshInvocationField marks the literal `ssh ...` invocation docker-machine
// prints to stderr under `--debug ssh`.
var sshInvocationField = "ssh "

// ExtractSSHCommand runs `docker-machine --debug ssh NAME echo ok` and parses
// the underlying `ssh ...` command line out of its stderr (§4.6), tokenizing
// it shell-style so quoted arguments (identity paths with spaces, `-o
// "UserKnownHostsFile=..."`) survive intact.
func (e *RsyncEngine) ExtractSSHCommand(ctx context.Context, vm string) ([]string, error) {
	result, err := e.Lifecycle.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"--debug", "ssh", vm, "echo", "ok"}, toolrunner.Options{MergeStderr: false})
	if err != nil {
		return nil, fmt.Errorf("extract ssh command for %s: %w", vm, err)
	}
	for _, line := range result.Stderr {
		if idx := strings.Index(line, sshInvocationField); idx >= 0 {
			fields, err := shellquote.Split(line[idx:])
			if err != nil {
				return nil, fmt.Errorf("extract ssh command for %s: %w", vm, err)
			}
			if len(fields) > 0 {
				return fields, nil
			}
		}
	}
	return nil, fmt.Errorf("extract ssh command for %s: no ssh invocation found in debug output", vm)
}

// Sync copies one share in direction dir, using the ssh invocation argv as
// the rsync `-e` transport. sshArgv is re-quoted with shellquote.Join so a
// token containing spaces doesn't split into two rsync `-e` words.
func (e *RsyncEngine) Sync(ctx context.Context, sshArgv []string, share types.Share, dir SyncDirection) error {
	transport := shellquote.Join(sshArgv...)
	host, err := mountvfs.ResolveHost(share.Host)
	if err != nil {
		return fmt.Errorf("sync %s: %w", share.Guest, err)
	}
	host = ensureTrailingSlash(host)
	guest := ensureTrailingSlash(share.Guest)

	// "machine" is a placeholder host: -e supplies the real connection
	// command, but rsync's remote-spec syntax still requires a HOST:PATH
	// form to recognize which side is remote.
	var src, dst string
	switch dir {
	case SyncGet:
		src, dst = "machine:"+guest, host
	case SyncPut:
		src, dst = host, "machine:"+guest
	default:
		return fmt.Errorf("sync %s: unknown direction %q", share.Guest, dir)
	}

	argv := []string{"-az", "-e", transport, src, dst}
	if _, err := e.Lifecycle.Runner.Run(ctx, "rsync", argv, toolrunner.Options{}); err != nil {
		return fmt.Errorf("sync %s: %w", share.Guest, err)
	}
	return nil
}

func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
