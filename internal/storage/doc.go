// Package storage manages copy-on-write volumes under a single root
// directory.
//
// An [Engine] addresses volumes by opaque ID and delegates the
// filesystem-level work to a [Driver]. The btrfs driver clones volumes as
// subvolume snapshots in near-constant time; the plain driver emulates
// snapshots with full tree copies for roots that do not live on btrfs.
//
// Mutations on a volume ID are serialized with per-ID advisory file locks,
// so concurrent engine processes operating on the same root cannot
// interleave destructively. A volume that is held in use (see
// [Engine.Acquire]) cannot be deleted until it is released.
//
// Example usage:
//
//	eng, err := storage.NewEngine("/var/lib/brig", storage.NewBtrfsDriver())
//	if err != nil {
//	    return err
//	}
//
//	if err := eng.Create("img_42002"); err != nil {
//	    return err
//	}
//	if err := eng.Snapshot("img_42002", "ps_42101"); err != nil {
//	    return err
//	}
package storage
