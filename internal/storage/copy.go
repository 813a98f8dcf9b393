package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/containerd/continuity/fs"
	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/paths"
)

// Duplicates the contents of src into dst.
//
// Both directories must exist. File data is cloned with reflinks when the
// filesystem supports them (notably btrfs) and degrades to a byte copy
// otherwise, preserving modes, owners, and hardlinks.
func CopyTree(dst, src string) error {
	if err := fs.CopyDir(dst, src); err != nil {
		return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, errdefs.ErrInternal)
	}
	return nil
}

// Copies a single file from src to dst, creating parent directories as
// needed. An existing dst is truncated.
func CopyFile(dst, src string) error {
	if err := os.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, errdefs.ErrInternal)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, errdefs.ErrInternal)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, errdefs.ErrInternal)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, errdefs.ErrInternal)
	}
	return nil
}
