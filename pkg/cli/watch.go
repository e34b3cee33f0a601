package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/tlacaelel666/guardian/pkg/model"
)

func watchCommand() *cli.Command {
	var (
		cfg config
		id  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Follow the operations of one session instead of the session list",
			Destination: &id,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "watch",
		Usage: "Probe the store and follow the live session list",
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

			if id != "" {
				ops, err := uc.WatchOperations(ctx, model.SessionID(id))
				if err != nil {
					return err
				}
				for list := range ops {
					fmt.Fprintf(c.Root().Writer, "--- %d operations ---\n", len(list))
					for _, op := range list {
						fmt.Fprintf(c.Root().Writer, "%2d. %s\n", op.Order, op.Name)
					}
				}
				return nil
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " probing session store..."
			sp.Start()

			uc.StartLoader(ctx)
			updates := uc.WatchSessionList(ctx)

			spinning := true
			for list := range updates {
				if spinning {
					sp.Stop()
					spinning = false
					if !uc.Ready() {
						fmt.Fprintln(c.Root().Writer, "Store unreachable; showing empty list")
					}
				}

				fmt.Fprintf(c.Root().Writer, "--- %d active sessions ---\n", len(list))
				for _, s := range list {
					fmt.Fprintf(c.Root().Writer, "%-36s  %-8s  %s\n", s.ID, s.SecurityLevel, s.Name)
				}
			}

			if spinning {
				sp.Stop()
			}
			return nil
		},
	}
}
