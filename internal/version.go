package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the engine, used for binary and logger naming.
const Name = "brig"

// String to indicate an undefined variable.
const defaultUndefined = "(undefined)"

var (
	version   = "" // Version number (e.g., "1.2.3"), set via ldflags.
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4"), set via ldflags.
)

// Returns the current version with any "v" prefix stripped, or
// "(undefined)" for local builds.
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(v, "v")
}

// Returns the git commit hash, or "(undefined)" for local builds.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns a detailed version string.
//
// Formatted as "<version> <git-commit> [<arch>]". Local builds without
// ldflags report "(local)".
func VersionString() string {
	if strings.TrimSpace(version) == "" && strings.TrimSpace(gitCommit) == "" {
		return "(local)"
	}
	return fmt.Sprintf("%s %s [%s]", Version(), GitCommit(), runtime.GOARCH)
}
