package cli

import (
	"context"
	"fmt"

	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/urfave/cli/v3"
)

func updateCommand() *cli.Command {
	var (
		cfg           config
		id            string
		name          string
		level         string
		authenticated bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Session ID",
			Required:    true,
			Destination: &id,
		},
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "New session name",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "level",
			Aliases:     []string{"l"},
			Usage:       "New security level",
			Destination: &level,
		},
		&cli.BoolFlag{
			Name:        "authenticated",
			Usage:       "Mark the session as authenticated",
			Destination: &authenticated,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "update",
		Usage: "Update a session (fingerprint-gated)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc, err := cfg.newUseCase(ctx, repo)
			if err != nil {
				return err
			}

			existing, err := repo.GetSession(ctx, model.SessionID(id))
			if err != nil {
				return err
			}

			if name != "" {
				existing.Name = name
			}
			if level != "" {
				existing.SecurityLevel = model.SecurityLevel(level)
				if err := existing.SecurityLevel.Validate(); err != nil {
					return err
				}
			}
			if c.IsSet("authenticated") {
				existing.Authenticated = authenticated
			}

			if err := uc.Update(ctx, existing); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Session %s updated\n", id)
			return nil
		},
	}
}
