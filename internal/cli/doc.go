// Package cli implements the brig command tree.
//
// Commands are verbs over images and containers: init, images, ps, run,
// commit, rm. Each invocation constructs a runtime from the root flags
// and blocks until the underlying storage or process operation completes.
package cli
