// Package runtime manages image and container lifecycles over
// copy-on-write volumes.
//
// A [Runtime] sits on a storage engine and an ID allocator. Images are
// built from a source directory and carry a provenance marker; containers
// are snapshots of an image in which a command runs inside fresh
// namespaces, its output captured to a per-container log. Commit folds a
// container's current content back into an existing image, preserving the
// image's identity.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.Config{
//	    Root:     "/var/lib/brig",
//	    Isolated: true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	imageID, err := rt.CreateImage("/srv/base-image")
//	if err != nil {
//	    return err
//	}
//
//	res, err := rt.CreateContainer(ctx, imageID, "yum install -y wget", os.Stdout)
//	if err != nil {
//	    return err
//	}
//
//	if err := rt.Commit(res.ContainerID, imageID); err != nil {
//	    return err
//	}
package runtime
