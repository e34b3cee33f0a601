package cli

import (
	"context"
	"fmt"

	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
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
		Name:  "delete",
		Usage: "Delete a session and all of its operations (fingerprint-gated)",
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

			if err := uc.Delete(ctx, model.SessionID(id)); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Session %s deleted\n", id)
			return nil
		},
	}
}
