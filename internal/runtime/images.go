package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/paths"
	"github.com/ferrohq/brig/internal/storage"
)

// Provenance marker recording the source directory of an image.
const sourceMarker = "img.source"

// A volume used as a read-only template for containers, plus provenance.
type Image struct {
	ID     string // Volume ID, prefixed with "img_".
	Source string // Source directory recorded at creation.
}

// Builds an image from the contents of a source directory.
//
// The directory tree is duplicated into a fresh volume, with reflinks
// where the filesystem supports them, and the provenance marker is
// written unless the copied tree already carries one (the source may be
// an exported image). Fails NotFound before any storage mutation when the
// directory does not exist; a volume whose population fails is deleted
// rather than left half-built.
func (rt *Runtime) CreateImage(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("no directory named %q exists: %w", dir, errdefs.ErrNotFound)
	}

	id, err := rt.allocate(ImagePrefix, rt.engine.Create)
	if err != nil {
		return "", err
	}

	if err := rt.populateImage(id, dir); err != nil {
		if delErr := rt.engine.Delete(id); delErr != nil {
			slog.Warn("failed to clean up partial image", "id", id, "error", delErr)
		}
		return "", err
	}

	slog.Info("image created", "id", id, "source", dir)
	return id, nil
}

// Copies the source tree into the image volume and records provenance.
func (rt *Runtime) populateImage(id, dir string) error {
	volume := rt.engine.Path(id)
	if err := storage.CopyTree(volume, dir); err != nil {
		return err
	}

	marker := filepath.Join(volume, sourceMarker)
	if _, err := os.Stat(marker); err == nil {
		return nil
	}
	if err := os.WriteFile(marker, []byte(dir+"\n"), paths.DefaultFileMode); err != nil {
		return fmt.Errorf("write provenance marker for %q: %v: %w", id, err, errdefs.ErrInternal)
	}
	return nil
}

// Lists images with their recorded source directories.
//
// The order is unspecified. Volumes without a provenance marker are
// skipped.
func (rt *Runtime) Images() ([]Image, error) {
	ids, err := rt.engine.List(ImagePrefix)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, id := range ids {
		b, err := os.ReadFile(filepath.Join(rt.engine.Path(id), sourceMarker))
		if err != nil {
			continue
		}
		images = append(images, Image{ID: id, Source: strings.TrimSpace(string(b))})
	}
	return images, nil
}

// Deletes an image.
//
// Containers previously snapshotted from it are unaffected.
func (rt *Runtime) DeleteImage(id string) error {
	if !strings.HasPrefix(id, ImagePrefix) {
		return fmt.Errorf("%q is not an image ID: %w", id, errdefs.ErrInvalidArgument)
	}
	return rt.Remove(id)
}
