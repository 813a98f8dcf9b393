package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/paths"
	"github.com/ferrohq/brig/internal/storage"
)

// Host DNS configuration copied into each container before execution.
const resolvConf = "/etc/resolv.conf"

// A volume snapshotted from an image, tagged with its launch command.
type Container struct {
	ID      string // Volume ID, prefixed with "ps_".
	Command string // Command the container was launched with.
}

// Outcome of running a container's command to completion.
type RunResult struct {
	ContainerID string // ID of the container, which persists after the run.
	ExitCode    int    // Exit code of the command, recorded as data.
}

// Path to a container's log file inside its volume.
func (rt *Runtime) LogPath(id string) string {
	return filepath.Join(rt.engine.Path(id), id+".log")
}

// Path to a container's command record inside its volume.
func (rt *Runtime) commandPath(id string) string {
	return filepath.Join(rt.engine.Path(id), id+".cmd")
}

// Creates a container from an image and runs a command inside it.
//
// The image volume is snapshotted into a fresh container volume, the
// command line is recorded inside it, and host DNS configuration is
// copied in. The call blocks until the process exits; combined output
// flows to stream live while being appended durably to the container's
// log. A non-zero exit of the command is not an error (it is returned in
// the result), and the container persists on disk whatever the outcome.
// The container's usage lock is held for the duration of the run, so
// deleting it mid-run reports busy.
func (rt *Runtime) CreateContainer(ctx context.Context, imageID, command string, stream io.Writer) (*RunResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if !rt.engine.Exists(imageID) {
		return nil, fmt.Errorf("no image named %q exists: %w", imageID, errdefs.ErrNotFound)
	}

	id, err := rt.allocate(ContainerPrefix, func(id string) error {
		return rt.engine.Snapshot(imageID, id)
	})
	if err != nil {
		return nil, err
	}

	// A snapshot whose setup fails is deleted rather than left half-built.
	cleanup := func() {
		if delErr := rt.engine.Delete(id); delErr != nil {
			slog.Warn("failed to clean up partial container", "id", id, "error", delErr)
		}
	}

	if err := os.WriteFile(rt.commandPath(id), []byte(command+"\n"), paths.DefaultFileMode); err != nil {
		cleanup()
		return nil, fmt.Errorf("record command for %q: %v: %w", id, err, errdefs.ErrInternal)
	}

	volume := rt.engine.Path(id)
	if err := storage.CopyFile(filepath.Join(volume, "etc", "resolv.conf"), resolvConf); err != nil {
		cleanup()
		return nil, err
	}

	release, err := rt.engine.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	slog.Info("container starting", "id", id, "image", imageID, "command", command)

	exitCode, err := rt.runner.Launch(ctx, volume, command, rt.LogPath(id), stream)
	if err != nil {
		return nil, err
	}

	slog.Info("container exited", "id", id, "exit_code", exitCode)
	return &RunResult{ContainerID: id, ExitCode: exitCode}, nil
}

// Lists containers with their recorded commands.
//
// The order is unspecified. Volumes without a command record are skipped.
func (rt *Runtime) Containers() ([]Container, error) {
	ids, err := rt.engine.List(ContainerPrefix)
	if err != nil {
		return nil, err
	}

	var containers []Container
	for _, id := range ids {
		b, err := os.ReadFile(rt.commandPath(id))
		if err != nil {
			continue
		}
		containers = append(containers, Container{ID: id, Command: strings.TrimSpace(string(b))})
	}
	return containers, nil
}

// Deletes a container.
//
// Fails with a busy classification while its process is still running.
func (rt *Runtime) DeleteContainer(id string) error {
	if !strings.HasPrefix(id, ContainerPrefix) {
		return fmt.Errorf("%q is not a container ID: %w", id, errdefs.ErrInvalidArgument)
	}
	return rt.Remove(id)
}
