package storage

import (
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/paths"
)

// Driver that emulates snapshots with full tree copies.
//
// Used when the storage root does not live on btrfs. Copies go through
// [CopyTree], which clones file data with reflinks where the underlying
// filesystem offers them, so a "full" copy can still be cheap. Divergence
// semantics match the btrfs driver: src and dst are fully independent
// after Snapshot returns.
type PlainDriver struct{}

// Creates the plain-copy fallback driver.
func NewPlainDriver() *PlainDriver {
	return &PlainDriver{}
}

// Allocates an empty directory at path.
func (d *PlainDriver) Create(path string) error {
	if err := os.Mkdir(path, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("create volume %s: %v: %w", path, err, errdefs.ErrInternal)
	}
	return nil
}

// Duplicates the tree at src into dst.
func (d *PlainDriver) Snapshot(src, dst string) error {
	if err := os.Mkdir(dst, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("create snapshot %s: %v: %w", dst, err, errdefs.ErrInternal)
	}
	return CopyTree(dst, src)
}

// Removes the tree at path.
func (d *PlainDriver) Delete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete volume %s: %v: %w", path, err, errdefs.ErrInternal)
	}
	return nil
}
