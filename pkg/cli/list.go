package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List active sessions",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			sessions, err := repo.ListActiveSessions(ctx)
			if err != nil {
				return err
			}

			if len(sessions) == 0 {
				fmt.Fprintln(c.Root().Writer, "No active sessions")
				return nil
			}

			for _, s := range sessions {
				mark := " "
				if s.Authenticated {
					mark = "*"
				}
				fmt.Fprintf(c.Root().Writer, "%s %-36s  %-8s  %-24s  %s\n",
					mark, s.ID, s.SecurityLevel, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Name)
			}
			return nil
		},
	}
}
