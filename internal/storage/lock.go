package storage

import (
	"fmt"
	"path/filepath"

	"github.com/containerd/errdefs"
	"github.com/gofrs/flock"
)

const (

	// Directory under the storage root holding advisory lock files.
	lockDir = ".locks"

	// Suffix of per-ID mutation locks, held for the duration of a single
	// engine operation.
	mutationSuffix = ".lock"

	// Suffix of per-ID usage locks, held while a process runs inside the
	// volume. A volume whose usage lock is held cannot be deleted.
	usageSuffix = ".active"
)

// Returns the lock file path for an ID and lock flavor.
func (e *Engine) lockPath(id, suffix string) string {
	return filepath.Join(e.root, lockDir, id+suffix)
}

// Acquires the exclusive mutation lock for id, blocking until available.
func (e *Engine) lockExclusive(id string) (func(), error) {
	fl := flock.New(e.lockPath(id, mutationSuffix))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock volume %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	return func() { fl.Unlock() }, nil
}

// Acquires the shared mutation lock for id, blocking until available.
//
// Shared locks are used on snapshot sources: concurrent snapshots of one
// volume may proceed, but its deletion must wait.
func (e *Engine) lockShared(id string) (func(), error) {
	fl := flock.New(e.lockPath(id, mutationSuffix))
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("lock volume %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	return func() { fl.Unlock() }, nil
}

// Attempts the exclusive mutation lock without blocking.
//
// Reports false when another engine operation currently holds the ID.
func (e *Engine) tryLockMutation(id string) (func(), bool, error) {
	fl := flock.New(e.lockPath(id, mutationSuffix))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("lock volume %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { fl.Unlock() }, true, nil
}

// Marks the volume as in use by a running process.
//
// The returned release function must be called when the process exits.
// While the usage lock is held, [Engine.Delete] on the ID reports the
// volume as busy. The lock is advisory and cross-process.
func (e *Engine) Acquire(id string) (func(), error) {
	fl := flock.New(e.lockPath(id, usageSuffix))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire volume %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	return func() { fl.Unlock() }, nil
}

// Attempts to take the usage lock without blocking.
//
// Reports false when another process currently holds the volume in use.
func (e *Engine) tryAcquire(id string) (func(), bool, error) {
	fl := flock.New(e.lockPath(id, usageSuffix))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire volume %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { fl.Unlock() }, true, nil
}
