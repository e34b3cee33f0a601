package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "guardian",
		Usage: "Hardware-rooted trust chain for workspace sessions",
		Commands: []*cli.Command{
			newCommand(),
			listCommand(),
			showCommand(),
			updateCommand(),
			deleteCommand(),
			reportCommand(),
			watchCommand(),
			verifyCommand(),
			suggestCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
