package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/usecase/protocol"
	"github.com/urfave/cli/v3"
)

func suggestCommand() *cli.Command {
	var (
		cfg      config
		prompt   string
		filePath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Usage:       "Security requirements to generate a protocol for",
			Required:    true,
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "file",
			Usage:       "Optional requirements file sent alongside the prompt",
			Destination: &filePath,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "suggest",
		Usage: "Generate a protocol suggestion without creating anything",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			input := &protocol.SuggestInput{Prompt: prompt}
			if filePath != "" {
				data, err := os.ReadFile(filePath)
				if err != nil {
					return goerr.Wrap(err, "failed to read requirements file", goerr.V("path", filePath))
				}
				input.FileData = data
				input.FileMIME = "text/plain"
			}

			suggestion, err := protocol.New(gemini).Suggest(ctx, input)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(suggestion, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to render suggestion")
			}
			fmt.Fprintln(c.Root().Writer, string(out))
			return nil
		},
	}
}
