package isolate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/ferrohq/brig/internal/paths"
	"golang.org/x/sys/unix"
)

// Shell interpreter used to run commands inside the container root.
const shell = "/bin/sh"

// Command prefix that mounts procfs before handing over to the user
// command. The mount must happen inside the new namespaces, after the
// chroot, so it is part of the shell line rather than runner setup.
const mountProc = "/bin/mount -t proc proc /proc && "

// Runs commands confined to a container volume.
type Runner struct {

	// Isolated selects namespace and chroot confinement. When false the
	// command runs unconfined with the volume as its working directory;
	// this mode exists for tests and environments without root privileges
	// and provides no isolation.
	Isolated bool
}

// Executes command rooted at the container volume and blocks until it
// exits.
//
// In isolated mode the command runs through the shell in fresh mount,
// UTS, IPC, and PID namespaces, chrooted at root, with procfs mounted
// inside. Combined stdout and stderr are appended to the file at logPath
// and forwarded incrementally to stream as they are produced.
//
// Returns the command's exit code. A non-zero exit is not an error; the
// error return is reserved for failing to start or supervise the process,
// classified as [ErrProcess]. Cancelling ctx kills the process group.
func (r *Runner) Launch(ctx context.Context, root, command, logPath string, stream io.Writer) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, paths.DefaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("%w: open log %s: %v", ErrProcess, logPath, err)
	}
	defer logFile.Close()

	if stream == nil {
		stream = io.Discard
	}

	cmd := r.command(ctx, root, command)

	// A single pipe carries stdout and stderr interleaved, as 2>&1 would.
	pr, pw, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProcess, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return 0, fmt.Errorf("%w: %v", ErrProcess, err)
	}
	pw.Close()

	// Drain the pipe in the background, teeing to the log and the caller.
	// The drained reader fires after its final write, so waiting on it
	// guarantees the log is fully flushed before the exit code is
	// reported.
	drained := newDrainedReader(pr)
	go func() {
		io.Copy(io.MultiWriter(logFile, stream), drained)
		drained.finish()
	}()

	waitErr := cmd.Wait()
	<-drained.done
	pr.Close()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("%w: %v", ErrProcess, waitErr)
	}
	return 0, nil
}

// Builds the shell invocation, confined or not.
func (r *Runner) command(ctx context.Context, root, command string) *exec.Cmd {
	var cmd *exec.Cmd
	if r.Isolated {
		cmd = exec.CommandContext(ctx, shell, "-c", mountProc+command)
		cmd.Dir = "/"
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Chroot:     root,
			Cloneflags: unix.CLONE_NEWNS | unix.CLONE_NEWUTS | unix.CLONE_NEWIPC | unix.CLONE_NEWPID,
			Setpgid:    true,
		}
	} else {
		cmd = exec.CommandContext(ctx, shell, "-c", command)
		cmd.Dir = root
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	// Kill the whole group on cancellation so children spawned by the
	// shell die with it.
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	return cmd
}
