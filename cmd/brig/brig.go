package main

import (
	"log/slog"
	"os"

	"github.com/ferrohq/brig/internal"
	"github.com/ferrohq/brig/internal/cli"
	"github.com/lmittmann/tint"
)

// The entry point for the brig engine.
//
// Installs the default logger, logs build information, and executes the
// root command. Any error during execution exits with a non-zero code.
func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	slog.Debug("build", "version", internal.VersionString())

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
