package cli

import (
	"context"
	"fmt"

	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg config
		id  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Session ID",
			Required:    true,
			Destination: &id,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a session and its operations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.GetSession(ctx, model.SessionID(id))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "Session:   %s\n", s.ID)
			fmt.Fprintf(w, "Name:      %s\n", s.Name)
			fmt.Fprintf(w, "Level:     %s\n", s.SecurityLevel)
			fmt.Fprintf(w, "Owner:     %s\n", s.Owner)
			fmt.Fprintf(w, "Auth:      %v (type %s, hash %s)\n", s.Authenticated, s.AuthType, s.AuthHash)
			fmt.Fprintf(w, "Created:   %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
			if s.AsymmetryMeasurement != 0 {
				fmt.Fprintf(w, "Asymmetry: %v\n", s.AsymmetryMeasurement)
			}

			ops, err := repo.ListOperations(ctx, s.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "Operations (%d):\n", len(ops))
			for _, op := range ops {
				fmt.Fprintf(w, "  %2d. %s  [%s]\n", op.Order, op.Name, op.AuthHash)
			}
			return nil
		},
	}
}
