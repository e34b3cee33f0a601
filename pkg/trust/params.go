package trust

import "github.com/m-mizutani/goerr/v2"

// Params is the immutable pair of hardware trust parameters (λ^ and λ²).
// They are passed explicitly to every component that derives values from
// them; nothing reads them from ambient state.
type Params struct {
	LambdaAlpha float64 `yaml:"lambdaAlpha"`
	LambdaBeta  float64 `yaml:"lambdaBeta"`
}

// DefaultParams returns the reference hardware calibration values
func DefaultParams() Params {
	return Params{
		LambdaAlpha: 0.162494,
		LambdaBeta:  0.298753,
	}
}

// Seed derives the challenge seed shared by hash generation and
// entropy encoding
func (p Params) Seed() float64 {
	return p.LambdaAlpha * p.LambdaBeta
}

// Validate checks that both parameters are set
func (p Params) Validate() error {
	if p.LambdaAlpha == 0 {
		return goerr.New("lambdaAlpha is not set")
	}
	if p.LambdaBeta == 0 {
		return goerr.New("lambdaBeta is not set")
	}
	return nil
}
