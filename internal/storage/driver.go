package storage

// Performs the filesystem-level volume operations for one storage backend.
//
// Paths are absolute volume directories under the engine's root. Snapshot
// must produce an independent tree: writes to either side after the call
// are invisible to the other.
type Driver interface {

	// Allocates an empty volume at path.
	Create(path string) error

	// Clones the volume at src into dst.
	Snapshot(src, dst string) error

	// Recursively and irreversibly removes the volume at path.
	Delete(path string) error
}
