package policy

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed authz.rego
var defaultPolicyRaw string

const authzQuery = "data.authz.allow"

// Engine evaluates the mutation authorization policy. The default policy
// allows creation by any resolved identity and restricts update/delete to
// the record owner; a policy directory can replace it entirely.
type Engine struct {
	query *rego.PreparedEvalQuery
}

// Input describes one requested mutation for policy evaluation
type Input struct {
	Actor         string
	Action        string // "create", "update" or "delete"
	Owner         string
	SecurityLevel string
}

// New creates a policy engine. With an empty policyDir the embedded default
// policy is used; otherwise every *.rego file in the directory is loaded.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}

	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query(authzQuery))
	options = append(options, modules...)

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare authorization query", goerr.V("query", authzQuery))
	}

	return &Engine{query: &prepared}, nil
}

func loadModules(policyDir string) ([]func(*rego.Rego), error) {
	if policyDir == "" {
		return []func(*rego.Rego){rego.Module("authz.rego", defaultPolicyRaw)}, nil
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", policyDir))
	}
	if len(files) == 0 {
		return nil, goerr.New("no policy files found", goerr.V("dir", policyDir))
	}

	modules := make([]func(*rego.Rego), 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		modules = append(modules, rego.Module(file, string(data)))
	}
	return modules, nil
}

// Allow evaluates the policy for one mutation
func (e *Engine) Allow(ctx context.Context, in *Input) (bool, error) {
	input := map[string]any{
		"actor":         in.Actor,
		"action":        in.Action,
		"owner":         in.Owner,
		"securityLevel": in.SecurityLevel,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate authorization policy")
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}
