package trust

import (
	"math"
	"math/rand"
)

// Tolerance is the maximum accepted distance between a measured asymmetry
// and the λ^ reference.
const Tolerance = 0.001

// noiseSpread is the peak-to-peak width of the simulated measurement noise.
// The resulting offset stays within ±0.00025, strictly inside Tolerance, so
// verification passes under the reference distribution. Widening it changes
// the gate semantics.
const noiseSpread = 0.0005

// Measurement is the outcome of one fingerprint check
type Measurement struct {
	Valid     bool
	Asymmetry float64
}

// Verifier performs the simulated PUF fingerprint check: it measures the
// physical asymmetry of the (simulated) hardware and compares it against
// the λ^ reference within Tolerance.
type Verifier struct {
	params Params
	rand   func() float64
}

// VerifierOption is a functional option for Verifier
type VerifierOption func(*Verifier)

// WithRand replaces the noise source. Used by tests to drive the
// otherwise-unreachable failure branch.
func WithRand(f func() float64) VerifierOption {
	return func(v *Verifier) {
		v.rand = f
	}
}

// NewVerifier creates a fingerprint verifier bound to the given parameters
func NewVerifier(params Params, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		params: params,
		rand:   rand.Float64,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs one calibration measurement and reports whether the measured
// asymmetry matches the reference. It has no side effects; callers decide
// how to react to a failed check.
func (v *Verifier) Verify() Measurement {
	noise := (v.rand() - 0.5) * noiseSpread
	measured := v.params.LambdaAlpha + noise

	return Measurement{
		Valid:     math.Abs(measured-v.params.LambdaAlpha) < Tolerance,
		Asymmetry: measured,
	}
}
