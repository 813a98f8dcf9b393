// Package paths centralizes filesystem locations and permission modes
// used across the engine.
package paths
