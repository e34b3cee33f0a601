package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/usecase/protocol"
	"github.com/tlacaelel666/guardian/pkg/usecase/session"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	var (
		cfg      config
		name     string
		level    string
		authType string
		prompt   string
		filePath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Session name",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "level",
			Aliases:     []string{"l"},
			Usage:       "Security level (low, medium, high, quantum)",
			Value:       "low",
			Destination: &level,
		},
		&cli.StringFlag{
			Name:        "auth-type",
			Usage:       "Authentication type (PUF, GMAK, BiMoType, QuoreMind)",
			Value:       "GMAK",
			Destination: &authType,
		},
		&cli.StringSliceFlag{
			Name:  "op",
			Usage: "Operation name (repeatable, created in order)",
		},
		&cli.StringFlag{
			Name:        "prompt",
			Usage:       "Generate the protocol from a requirements prompt instead of flags",
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
		Name:  "new",
		Usage: "Create a session with its operations",
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

			input := &session.CreateInput{
				Name:          name,
				SecurityLevel: model.SecurityLevel(level),
				AuthType:      model.AuthenticationType(authType),
			}
			for _, op := range c.StringSlice("op") {
				input.Operations = append(input.Operations, session.OperationDraft{
					Name:     op,
					AuthType: model.AuthenticationType(authType),
				})
			}

			if prompt != "" {
				gemini, err := cfg.newGemini(ctx)
				if err != nil {
					return err
				}

				suggestInput := &protocol.SuggestInput{Prompt: prompt}
				if filePath != "" {
					data, err := os.ReadFile(filePath)
					if err != nil {
						return goerr.Wrap(err, "failed to read requirements file", goerr.V("path", filePath))
					}
					suggestInput.FileData = data
					suggestInput.FileMIME = "text/plain"
				}

				suggestion, err := protocol.New(gemini).Suggest(ctx, suggestInput)
				if err != nil {
					return err
				}

				input.Name = suggestion.SessionName
				input.SecurityLevel = suggestion.RecommendedLevel
				if len(suggestion.RequiredAuthentication) > 0 {
					input.AuthType = suggestion.RequiredAuthentication[0]
				}
				input.Operations = nil
				for _, op := range suggestion.Operations {
					input.Operations = append(input.Operations, session.OperationDraft{
						Name:     op,
						AuthType: input.AuthType,
					})
				}
			}

			if err := uc.Bootstrap(ctx); err != nil {
				return err
			}

			out, err := uc.CreateWithOperations(ctx, input)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Created session %s (%s) with %d operations\n",
				out.Session.ID, out.Session.Name, len(out.Operations))
			return nil
		},
	}
}
