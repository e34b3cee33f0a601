package cli

import (
	"context"
	"fmt"

	"github.com/tlacaelel666/guardian/pkg/trust"
	"github.com/urfave/cli/v3"
)

func verifyCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "verify",
		Usage: "Run a one-shot hardware fingerprint check",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			params, err := cfg.trustParams()
			if err != nil {
				return err
			}

			m := trust.NewVerifier(params).Verify()

			w := c.Root().Writer
			fmt.Fprintf(w, "Measured asymmetry: %v\n", m.Asymmetry)
			fmt.Fprintf(w, "Reference λ^:       %v\n", params.LambdaAlpha)
			if m.Valid {
				fmt.Fprintln(w, "VERIFICATION SUCCESSFUL. Hardware is genuine.")
			} else {
				fmt.Fprintln(w, "SECURITY ALERT! Hardware fingerprint mismatch.")
			}
			return nil
		},
	}
}
