package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Represents the 'brig run' command.
type RunCmd struct {
	ImageID string   `arg:"" help:"Image to snapshot the container from."`
	Command []string `arg:"" passthrough:"" help:"Command to run inside the container."`
}

// Executes the run command.
//
// Blocks until the command inside the container exits, streaming its
// output to stdout. The inner command's exit code is reported as data; it
// does not become the orchestration exit code.
func (c *RunCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	res, err := rt.CreateContainer(ctx, c.ImageID, strings.Join(c.Command, " "), os.Stdout)
	if err != nil {
		return err
	}

	slog.Info("container finished", "id", res.ContainerID, "exit_code", res.ExitCode)
	return nil
}
