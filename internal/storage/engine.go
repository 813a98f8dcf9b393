package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/paths"
	"golang.org/x/sys/unix"
)

// Name prefix for hidden staging volumes created during [Engine.Replace].
const stagingPrefix = ".stage-"

// Addresses copy-on-write volumes by opaque ID under a single root.
type Engine struct {
	root   string // Absolute storage root directory.
	driver Driver // Backend performing the filesystem operations.
}

// Creates an engine rooted at root.
//
// The root and its lock directory are created if missing. Staging volumes
// left behind by an interrupted Replace are swept on construction.
func NewEngine(root string, driver Driver) (*Engine, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty: %w", errdefs.ErrInvalidArgument)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %v: %w", root, err, errdefs.ErrInternal)
	}

	if err := os.MkdirAll(filepath.Join(abs, lockDir), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("prepare storage root %s: %v: %w", abs, err, errdefs.ErrInternal)
	}

	e := &Engine{root: abs, driver: driver}
	e.sweepStaging()
	return e, nil
}

// Returns the storage root directory.
func (e *Engine) Root() string {
	return e.root
}

// Returns the absolute directory of the volume with the given ID.
func (e *Engine) Path(id string) string {
	return filepath.Join(e.root, id)
}

// Reports whether a volume with the given ID exists.
func (e *Engine) Exists(id string) bool {
	info, err := os.Stat(e.Path(id))
	return err == nil && info.IsDir()
}

// Rejects IDs that are empty, hidden, or would escape the storage root.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("volume ID must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid volume ID %q: %w", id, errdefs.ErrInvalidArgument)
	}
	return nil
}

// Allocates an empty volume with the given ID.
func (e *Engine) Create(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	release, err := e.lockExclusive(id)
	if err != nil {
		return err
	}
	defer release()

	if e.Exists(id) {
		return fmt.Errorf("volume %q: %w", id, errdefs.ErrAlreadyExists)
	}

	if err := e.driver.Create(e.Path(id)); err != nil {
		return err
	}

	slog.Debug("volume created", "id", id)
	return nil
}

// Clones the current state of srcID into an independent volume dstID.
//
// Subsequent writes to either side are invisible to the other. The source
// is held under a shared lock for the duration, so it cannot be deleted
// mid-clone.
func (e *Engine) Snapshot(srcID, dstID string) error {
	if err := validateID(srcID); err != nil {
		return err
	}
	if err := validateID(dstID); err != nil {
		return err
	}

	srcRelease, err := e.lockShared(srcID)
	if err != nil {
		return err
	}
	defer srcRelease()

	dstRelease, err := e.lockExclusive(dstID)
	if err != nil {
		return err
	}
	defer dstRelease()

	if !e.Exists(srcID) {
		return fmt.Errorf("no volume named %q: %w", srcID, errdefs.ErrNotFound)
	}
	if e.Exists(dstID) {
		return fmt.Errorf("volume %q: %w", dstID, errdefs.ErrAlreadyExists)
	}

	if err := e.driver.Snapshot(e.Path(srcID), e.Path(dstID)); err != nil {
		return err
	}

	slog.Debug("volume snapshotted", "src", srcID, "dst", dstID)
	return nil
}

// Recursively and irreversibly removes the volume with the given ID.
//
// Fails with a NotFound classification when the volume is absent and with
// an Unavailable classification while it is held in use via [Engine.Acquire].
func (e *Engine) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	release, err := e.lockExclusive(id)
	if err != nil {
		return err
	}
	defer release()

	if !e.Exists(id) {
		return fmt.Errorf("no volume named %q: %w", id, errdefs.ErrNotFound)
	}

	usageRelease, ok, err := e.tryAcquire(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("volume %q is in use by a running process: %w", id, errdefs.ErrUnavailable)
	}
	defer usageRelease()

	if err := e.driver.Delete(e.Path(id)); err != nil {
		return err
	}

	slog.Debug("volume deleted", "id", id)
	return nil
}

// Lists existing volume IDs under the given prefix.
//
// Each call performs a fresh scan of the root. Ordering is not guaranteed,
// and mutations concurrent with the scan may or may not be observed.
func (e *Engine) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("scan storage root %s: %v: %w", e.root, err, errdefs.ErrInternal)
	}

	var ids []string
	for _, ent := range entries {
		name := ent.Name()
		if !ent.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// Replaces the content of volume dstID with a snapshot of srcID, keeping
// dstID's identity.
//
// The snapshot lands in a hidden staging volume first and is then swapped
// with dstID in one atomic rename exchange, so dstID is never observably
// without a backing volume. When the kernel or filesystem cannot exchange
// atomically the engine degrades to delete-then-rename, which leaves a
// short window in which dstID is absent. Both volumes must already exist;
// Replace never allocates a new ID. Locks are taken source first (shared),
// then target (exclusive).
func (e *Engine) Replace(dstID, srcID string) error {
	if err := validateID(srcID); err != nil {
		return err
	}
	if err := validateID(dstID); err != nil {
		return err
	}

	srcRelease, err := e.lockShared(srcID)
	if err != nil {
		return err
	}
	defer srcRelease()

	dstRelease, err := e.lockExclusive(dstID)
	if err != nil {
		return err
	}
	defer dstRelease()

	if !e.Exists(srcID) {
		return fmt.Errorf("no volume named %q: %w", srcID, errdefs.ErrNotFound)
	}
	if !e.Exists(dstID) {
		return fmt.Errorf("no volume named %q: %w", dstID, errdefs.ErrNotFound)
	}

	stagePath := filepath.Join(e.root, stagingPrefix+dstID)
	if err := e.driver.Snapshot(e.Path(srcID), stagePath); err != nil {
		return err
	}

	if err := exchange(stagePath, e.Path(dstID)); err != nil {
		if !errdefs.IsNotImplemented(err) {
			e.driver.Delete(stagePath)
			return err
		}
		return e.replaceDegraded(dstID, stagePath)
	}

	// The staging volume now holds the displaced content.
	if err := e.driver.Delete(stagePath); err != nil {
		slog.Warn("failed to delete displaced volume", "path", stagePath, "error", err)
	}

	slog.Debug("volume replaced", "id", dstID, "source", srcID)
	return nil
}

// Fallback replacement for filesystems without rename exchange: delete the
// target, then move the staged snapshot into place.
func (e *Engine) replaceDegraded(dstID, stagePath string) error {
	if err := e.driver.Delete(e.Path(dstID)); err != nil {
		e.driver.Delete(stagePath)
		return err
	}

	if err := os.Rename(stagePath, e.Path(dstID)); err != nil {
		return fmt.Errorf("rename %s to %s: %v: %w", stagePath, e.Path(dstID), err, errdefs.ErrInternal)
	}

	slog.Debug("volume replaced without atomic exchange", "id", dstID)
	return nil
}

// Atomically swaps the directories at a and b.
//
// Classified as NotImplemented when the kernel or filesystem rejects the
// exchange, so callers can fall back to a non-atomic path.
func exchange(a, b string) error {
	err := unix.Renameat2(unix.AT_FDCWD, a, unix.AT_FDCWD, b, unix.RENAME_EXCHANGE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.ENOTSUP) {
		return fmt.Errorf("atomic exchange of %s and %s: %w", a, b, errdefs.ErrNotImplemented)
	}
	return fmt.Errorf("exchange %s with %s: %v: %w", a, b, err, errdefs.ErrInternal)
}

// Removes staging volumes left behind by an interrupted Replace.
//
// A staging volume whose target mutation lock is held belongs to a Replace
// in flight in another engine process and is left alone; it is only stale
// when the lock is free.
func (e *Engine) sweepStaging() {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if !strings.HasPrefix(ent.Name(), stagingPrefix) {
			continue
		}
		id := strings.TrimPrefix(ent.Name(), stagingPrefix)
		release, ok, err := e.tryLockMutation(id)
		if err != nil || !ok {
			continue
		}
		p := filepath.Join(e.root, ent.Name())
		if err := e.driver.Delete(p); err != nil {
			slog.Warn("failed to sweep stale staging volume", "path", p, "error", err)
		}
		release()
	}
}
