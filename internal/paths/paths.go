package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	engineName = "brig"

	// Storage root used when running as root.
	systemRoot = "/var/lib/brig"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Default path to the storage root holding image and container volumes.
//
//	root:        /var/lib/brig
//	other users: $XDG_DATA_HOME/brig or ~/.local/share/brig
//
// The root should live on a btrfs filesystem so that snapshots are
// copy-on-write; callers can override it via configuration.
func StorageRoot() string {
	if os.Geteuid() == 0 {
		return systemRoot
	}
	return filepath.Join(xdg.DataHome, engineName)
}
