// Package isolate runs commands inside a container's root filesystem.
//
// A [Runner] confines each command to fresh mount, UTS, IPC, and PID
// namespaces, chroots it at the container volume, and mounts procfs
// inside before handing over to the shell. Combined output is appended to
// a per-container log file and forwarded incrementally to the caller.
//
// The runner enforces no timeout of its own: a hung command blocks until
// the caller's context is cancelled, at which point the whole process
// group is killed.
package isolate
