package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ferrohq/brig/internal"
	"github.com/ferrohq/brig/internal/paths"
	"github.com/ferrohq/brig/internal/runtime"
	"github.com/ferrohq/brig/internal/storage"
	"github.com/lmittmann/tint"
)

// Represents the root command for the brig engine.
var RootCmd struct {
	Quiet bool   `short:"q" help:"Suppress informational output."`
	Debug bool   `short:"d" help:"Enable debug output."`
	Root  string `help:"Storage root holding image and container volumes." env:"BRIG_ROOT" placeholder:"DIR"`
	Plain bool   `help:"Emulate snapshots with full copies instead of btrfs subvolumes."`

	Init    InitCmd    `cmd:"" help:"Create an image from a directory."`
	Images  ImagesCmd  `cmd:"" help:"List images."`
	Ps      PsCmd      `cmd:"" help:"List containers."`
	Run     RunCmd     `cmd:"" help:"Create a container from an image and run a command inside it."`
	Commit  CommitCmd  `cmd:"" help:"Commit a container's content back to an existing image."`
	Rm      RmCmd      `cmd:"" help:"Delete an image or container."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("A minimal container engine over copy-on-write volumes."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	level := slog.LevelInfo
	if RootCmd.Debug {
		level = slog.LevelDebug
	} else if RootCmd.Quiet {
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   level,
		NoColor: !isatty(os.Stderr),
	})))
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// Constructs the runtime from the root flags.
//
// The storage root comes from --root or $BRIG_ROOT, falling back to the
// platform default. Container processes run isolated; --plain only swaps
// the snapshot backend.
func newRuntime() (*runtime.Runtime, error) {
	root := RootCmd.Root
	if root == "" {
		root = paths.StorageRoot()
	}

	var driver storage.Driver
	if RootCmd.Plain {
		driver = storage.NewPlainDriver()
	}

	return runtime.New(runtime.Config{
		Root:     root,
		Driver:   driver,
		Isolated: true,
	})
}
