// Package ident issues collision-free volume IDs within namespace
// prefixes.
package ident

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/containerd/errdefs"
)

const (

	// Inclusive bounds of the random draw space. The space is deliberately
	// small, so collisions are a realistic and testable event.
	drawMin = 42002
	drawMax = 42254

	// Number of random draws before falling back to sequential probing.
	maxDraws = 32

	// Number of sequential probes before reporting exhaustion.
	maxProbes = 4096
)

// Reports whether a volume with the given ID already exists.
type Space interface {
	Exists(id string) bool
}

// Issues volume IDs that are unique among existing volumes.
//
// Candidates are drawn at random from the bounded numeric space and
// checked against the backing volume set. Redraws are bounded; when the
// random space is under pressure the allocator probes sequentially from a
// monotonic counter parked just above the draw space, so issuance always
// terminates.
type Allocator struct {
	space Space
	next  atomic.Uint64 // Monotonic counter for the fallback probe.
}

// Creates an allocator checking candidates against the given space.
func New(space Space) *Allocator {
	return &Allocator{space: space}
}

// Issues a fresh ID carrying the given namespace prefix.
//
// The returned ID does not collide with any existing volume at issuance
// time. Collisions are redrawn internally and never surfaced to callers.
func (a *Allocator) Issue(prefix string) (string, error) {
	for range maxDraws {
		id := fmt.Sprintf("%s%d", prefix, drawMin+rand.IntN(drawMax-drawMin+1))
		if !a.space.Exists(id) {
			return id, nil
		}
	}

	for range maxProbes {
		id := fmt.Sprintf("%s%d", prefix, uint64(drawMax)+a.next.Add(1))
		if !a.space.Exists(id) {
			return id, nil
		}
	}

	return "", fmt.Errorf("ID space for prefix %q exhausted: %w", prefix, errdefs.ErrResourceExhausted)
}
