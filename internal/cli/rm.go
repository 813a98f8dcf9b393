package cli

import (
	"context"
	"fmt"
)

// Represents the 'brig rm' command.
type RmCmd struct {
	ID string `arg:"" help:"Image or container ID to delete."`
}

// Executes the rm command.
func (c *RmCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	if err := rt.Remove(c.ID); err != nil {
		return err
	}

	fmt.Printf("Removed: %s\n", c.ID)
	return nil
}
