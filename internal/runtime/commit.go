package runtime

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/containerd/errdefs"
)

// Folds a container's current volume content back into an existing image.
//
// Both IDs must reference existing volumes; commit never allocates a new
// image ID. On success the image's content is identical to the
// container's at commit time, under the same image ID, and the container
// is untouched and remains independently usable. The replacement is
// staged and atomically exchanged by the storage engine, so the image ID
// keeps a backing volume throughout; only when the filesystem cannot
// exchange atomically does the engine fall back to delete-then-rename.
func (rt *Runtime) Commit(containerID, imageID string) error {
	if !strings.HasPrefix(containerID, ContainerPrefix) {
		return fmt.Errorf("%q is not a container ID: %w", containerID, errdefs.ErrInvalidArgument)
	}
	if !strings.HasPrefix(imageID, ImagePrefix) {
		return fmt.Errorf("%q is not an image ID: %w", imageID, errdefs.ErrInvalidArgument)
	}

	if !rt.engine.Exists(containerID) {
		return fmt.Errorf("no container named %q exists: %w", containerID, errdefs.ErrNotFound)
	}
	if !rt.engine.Exists(imageID) {
		return fmt.Errorf("no image named %q exists: %w", imageID, errdefs.ErrNotFound)
	}

	if err := rt.engine.Replace(imageID, containerID); err != nil {
		return err
	}

	slog.Info("container committed", "container", containerID, "image", imageID)
	return nil
}
