package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/tlacaelel666/guardian/pkg/policy"
	"github.com/tlacaelel666/guardian/pkg/repository"
	"github.com/tlacaelel666/guardian/pkg/trust"
	"github.com/tlacaelel666/guardian/pkg/usecase/session"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Repository
	project    string
	database   string
	collection string

	// Trust chain
	paramsPath string
	policyDir  string

	// Suggestion endpoint
	geminiProject  string
	geminiLocation string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("GUARDIAN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "collection",
			Usage:       "Session collection name",
			Value:       "quantum_sessions",
			Sources:     cli.EnvVars("GUARDIAN_COLLECTION"),
			Destination: &cfg.collection,
		},
		&cli.StringFlag{
			Name:        "params",
			Usage:       "Path to YAML file with hardware trust parameters",
			Sources:     cli.EnvVars("GUARDIAN_TRUST_PARAMS"),
			Destination: &cfg.paramsPath,
		},
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Directory with authorization policy files (*.rego)",
			Sources:     cli.EnvVars("GUARDIAN_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// llmFlags returns flags for the suggestion endpoint with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// setupLogger installs the default logger at the configured level
func (cfg *config) setupLogger() {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
}

// trustParams loads the hardware parameters from the YAML file, or returns
// the reference calibration when no file is given.
func (cfg *config) trustParams() (trust.Params, error) {
	if cfg.paramsPath == "" {
		return trust.DefaultParams(), nil
	}

	data, err := os.ReadFile(cfg.paramsPath)
	if err != nil {
		return trust.Params{}, goerr.Wrap(err, "failed to read trust parameter file",
			goerr.V("path", cfg.paramsPath))
	}

	var params trust.Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		return trust.Params{}, goerr.Wrap(err, "failed to parse trust parameter file",
			goerr.V("path", cfg.paramsPath))
	}
	if err := params.Validate(); err != nil {
		return trust.Params{}, err
	}
	return params, nil
}

// newRepository creates a Firestore repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Firestore, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database,
		repository.WithCollection(cfg.collection))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newUseCase wires the session trust coordinator
func (cfg *config) newUseCase(ctx context.Context, repo repository.Repository) (*session.UseCase, error) {
	params, err := cfg.trustParams()
	if err != nil {
		return nil, err
	}

	authz, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, err
	}

	uc := session.New(
		repo,
		trust.NewVerifier(params),
		trust.NewHashGenerator(params),
		params,
		session.WithAuthz(authz),
		session.WithNotifier(adapter.NewLogNotifier(logging.Default())),
	)
	return uc, nil
}

// newGemini creates the suggestion endpoint adapter
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}
