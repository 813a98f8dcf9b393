package runtime

import (
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/ferrohq/brig/internal/ident"
	"github.com/ferrohq/brig/internal/isolate"
	"github.com/ferrohq/brig/internal/storage"
)

const (

	// Volume ID prefix for images.
	ImagePrefix = "img_"

	// Volume ID prefix for containers.
	ContainerPrefix = "ps_"

	// Bounded retries for the race between ID issuance and volume
	// creation, when a concurrent engine process claims the candidate
	// in between.
	maxIssueAttempts = 8
)

// Configures a [Runtime].
type Config struct {
	Root     string         // Storage root directory holding all volumes.
	Driver   storage.Driver // Volume backend. Nil selects the btrfs driver.
	Isolated bool           // Confine container processes to namespaces and a chroot.
}

// Provides image and container lifecycle operations and commit.
type Runtime struct {
	engine *storage.Engine  // Volume store shared by images and containers.
	ids    *ident.Allocator // Namespaced ID issuance.
	runner *isolate.Runner  // Process execution inside container roots.
}

// Creates a runtime over the given storage root.
func New(cfg Config) (*Runtime, error) {
	driver := cfg.Driver
	if driver == nil {
		driver = storage.NewBtrfsDriver()
	}

	engine, err := storage.NewEngine(cfg.Root, driver)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		engine: engine,
		ids:    ident.New(engine),
		runner: &isolate.Runner{Isolated: cfg.Isolated},
	}, nil
}

// Removes the image or container with the given ID.
//
// Fails NotFound when no volume carries the ID and with a busy
// classification while a process is still running inside it.
func (rt *Runtime) Remove(id string) error {
	if !strings.HasPrefix(id, ImagePrefix) && !strings.HasPrefix(id, ContainerPrefix) {
		return fmt.Errorf("%q is not an image or container ID: %w", id, errdefs.ErrInvalidArgument)
	}
	if !rt.engine.Exists(id) {
		return fmt.Errorf("no image or container named %q exists: %w", id, errdefs.ErrNotFound)
	}
	return rt.engine.Delete(id)
}

// Issues an ID under prefix and materializes its volume via build.
//
// The allocator checks candidates against existing volumes, but another
// engine process can claim a candidate between that check and the volume
// operation. Such collisions surface as AlreadyExists from build and are
// redrawn here, never returned to the caller.
func (rt *Runtime) allocate(prefix string, build func(id string) error) (string, error) {
	for range maxIssueAttempts {
		id, err := rt.ids.Issue(prefix)
		if err != nil {
			return "", err
		}

		err = build(id)
		if err == nil {
			return id, nil
		}
		if !errdefs.IsAlreadyExists(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("could not claim a free %q ID: %w", prefix, errdefs.ErrResourceExhausted)
}
