package storage

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/containerd/errdefs"
)

// Driver backed by btrfs subvolumes.
//
// Each volume is a subvolume directly under the storage root. Snapshots
// share data blocks with their source until either side writes, so cloning
// cost is independent of volume size. Operations shell out to the btrfs
// tool with structured argument vectors; IDs and paths are passed as data,
// never interpolated into a shell command line.
type BtrfsDriver struct {
	tool string // Path or name of the btrfs binary.
}

// Creates a driver that resolves the btrfs binary from PATH.
func NewBtrfsDriver() *BtrfsDriver {
	return &BtrfsDriver{tool: "btrfs"}
}

// Allocates an empty subvolume at path.
func (d *BtrfsDriver) Create(path string) error {
	return d.run("subvolume", "create", path)
}

// Clones the subvolume at src into a writable snapshot at dst.
func (d *BtrfsDriver) Snapshot(src, dst string) error {
	return d.run("subvolume", "snapshot", src, dst)
}

// Removes the subvolume at path.
func (d *BtrfsDriver) Delete(path string) error {
	return d.run("subvolume", "delete", path)
}

// Runs a btrfs subcommand, folding its output into the returned error.
func (d *BtrfsDriver) run(args ...string) error {
	out, err := exec.Command(d.tool, args...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("btrfs %s: %s: %w", strings.Join(args[:2], " "), detail, errdefs.ErrInternal)
	}
	return nil
}
