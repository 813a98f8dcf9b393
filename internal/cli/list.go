package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Represents the 'brig images' command.
type ImagesCmd struct{}

// Executes the images command, printing one row per image.
func (c *ImagesCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	images, err := rt.Images()
	if err != nil {
		return err
	}

	w := newListWriter()
	fmt.Fprintln(w, "IMAGE_ID\tSOURCE")
	for _, img := range images {
		fmt.Fprintf(w, "%s\t%s\n", img.ID, img.Source)
	}
	return w.Flush()
}

// Represents the 'brig ps' command.
type PsCmd struct{}

// Executes the ps command, printing one row per container.
func (c *PsCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	containers, err := rt.Containers()
	if err != nil {
		return err
	}

	w := newListWriter()
	fmt.Fprintln(w, "CONTAINER_ID\tCOMMAND")
	for _, ctr := range containers {
		fmt.Fprintf(w, "%s\t%s\n", ctr.ID, ctr.Command)
	}
	return w.Flush()
}

// Returns a tab writer configured for two-column listings on stdout.
func newListWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}
