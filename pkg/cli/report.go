package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/urfave/cli/v3"
)

func reportCommand() *cli.Command {
	var (
		cfg    config
		bucket string
		fetch  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Archive the report to this Cloud Storage bucket",
			Sources:     cli.EnvVars("GUARDIAN_REPORT_BUCKET"),
			Destination: &bucket,
		},
		&cli.StringFlag{
			Name:        "fetch",
			Usage:       "Print an archived report by its object key instead of generating one",
			Destination: &fetch,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "report",
		Usage: "Generate a trust report over the active sessions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			if fetch != "" {
				if bucket == "" {
					return goerr.New("--bucket is required with --fetch")
				}
				storage, err := adapter.NewStorage(ctx, bucket)
				if err != nil {
					return err
				}
				r, err := storage.Get(ctx, fetch)
				if err != nil {
					return err
				}
				defer r.Close()
				if _, err := io.Copy(c.Root().Writer, r); err != nil {
					return goerr.Wrap(err, "failed to stream archived report", goerr.V("key", fetch))
				}
				return nil
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc, err := cfg.newUseCase(ctx, repo)
			if err != nil {
				return err
			}

			report := uc.Report(ctx)
			fmt.Fprint(c.Root().Writer, report.String())

			if bucket != "" {
				storage, err := adapter.NewStorage(ctx, bucket)
				if err != nil {
					return err
				}

				key := "reports/" + report.GeneratedAt.Format("2006-01-02T15-04-05") + ".txt"
				w, err := storage.Put(ctx, key)
				if err != nil {
					return err
				}
				if _, err := w.Write([]byte(report.String())); err != nil {
					return goerr.Wrap(err, "failed to archive report", goerr.V("key", key))
				}
				if err := w.Close(); err != nil {
					return goerr.Wrap(err, "failed to finalize report archive", goerr.V("key", key))
				}

				fmt.Fprintf(c.Root().Writer, "Report archived to gs://%s/%s\n", bucket, key)
			}
			return nil
		},
	}
}
