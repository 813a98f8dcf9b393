package cli

import (
	"context"
	"fmt"
)

// Represents the 'brig commit' command.
type CommitCmd struct {
	ContainerID string `arg:"" help:"Container whose content to commit."`
	ImageID     string `arg:"" help:"Existing image to overwrite."`
}

// Executes the commit command.
func (c *CommitCmd) Run(ctx context.Context) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	if err := rt.Commit(c.ContainerID, c.ImageID); err != nil {
		return err
	}

	fmt.Printf("Created: %s\n", c.ImageID)
	return nil
}
