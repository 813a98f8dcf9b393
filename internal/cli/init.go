package cli

import (
	"context"
	"fmt"
)

// Represents the 'brig init' command.
type InitCmd struct {
	Directory string `arg:"" help:"Directory to build the image from."`
}

// Executes the init command.
//
// Builds an image from the directory and prints the issued image ID.
func (c *InitCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	id, err := rt.CreateImage(c.Directory)
	if err != nil {
		return err
	}

	fmt.Printf("Created: %s\n", id)
	return nil
}
