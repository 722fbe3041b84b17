package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/efrecon/machinery/pkg/lifecycle"
	"github.com/efrecon/machinery/pkg/toolrunner"
)

// Deployer runs `docker stack deploy` against a manager endpoint, copying a
// linearized document and its referenced files to a temporary remote
// directory first (§4.4's stack deploy steps 2-5).
type Deployer struct {
	Lifecycle *lifecycle.Manager
}

// Deploy linearizes composeFile, copies it and every file it references to
// a fresh remote temp directory on machine, runs `docker stack deploy`
// against endpoint, then removes the remote directory.
func (d *Deployer) Deploy(ctx context.Context, machine string, endpoint lifecycle.Endpoint, composeFile, stackName string, options []string) error {
	doc, err := Linearize(composeFile)
	if err != nil {
		return fmt.Errorf("deploy %s: %w", stackName, err)
	}

	remoteDir, err := d.pushRemoteDir(ctx, machine)
	if err != nil {
		return fmt.Errorf("deploy %s: %w", stackName, err)
	}
	defer d.removeRemoteDir(ctx, machine, remoteDir)

	localCompose, err := os.CreateTemp("", "machinery-compose-*.yml")
	if err != nil {
		return fmt.Errorf("deploy %s: %w", stackName, err)
	}
	defer os.Remove(localCompose.Name())
	if _, err := localCompose.Write(doc.YAML); err != nil {
		localCompose.Close()
		return fmt.Errorf("deploy %s: %w", stackName, err)
	}
	localCompose.Close()

	remoteCompose := remoteDir + "/" + filepath.Base(composeFile)
	if err := d.scp(ctx, machine, localCompose.Name(), remoteCompose); err != nil {
		return fmt.Errorf("deploy %s: %w", stackName, err)
	}
	for _, ref := range doc.Files {
		if err := d.scp(ctx, machine, ref.Local, remoteDir+"/"+ref.Remote); err != nil {
			return fmt.Errorf("deploy %s: %w", stackName, err)
		}
	}

	argv := append([]string{"stack", "deploy", "--compose-file", remoteCompose}, options...)
	argv = append(argv, stackName)
	if _, err := d.Lifecycle.Runner.Run(ctx, toolrunner.ToolDocker, argv, toolrunner.Options{Env: endpoint.Env()}); err != nil {
		return fmt.Errorf("deploy %s: stack deploy: %w", stackName, err)
	}
	return nil
}

func (d *Deployer) pushRemoteDir(ctx context.Context, machine string) (string, error) {
	lines, err := d.Lifecycle.SSH(ctx, machine, []string{"mktemp", "-d"})
	if err != nil {
		return "", fmt.Errorf("create remote temp dir: %w", err)
	}
	for _, line := range lines {
		if line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("create remote temp dir: empty output")
}

func (d *Deployer) removeRemoteDir(ctx context.Context, machine, dir string) {
	_, _ = d.Lifecycle.SSH(ctx, machine, []string{"rm", "-rf", dir})
}

func (d *Deployer) scp(ctx context.Context, machine, local, remote string) error {
	_, err := d.Lifecycle.Runner.Run(ctx, toolrunner.ToolDockerMachine, []string{"scp", local, machine + ":" + remote}, toolrunner.Options{})
	return err
}
