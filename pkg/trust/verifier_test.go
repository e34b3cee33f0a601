package trust_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tlacaelel666/guardian/pkg/trust"
)

func TestVerifyAlwaysPassesUnderReferenceNoise(t *testing.T) {
	v := trust.NewVerifier(trust.DefaultParams())

	// The noise amplitude is strictly below the tolerance, so every
	// measurement must pass.
	for i := 0; i < 10000; i++ {
		m := v.Verify()
		if !m.Valid {
			t.Fatalf("verification failed at iteration %d: measured %v", i, m.Asymmetry)
		}
	}
}

func TestVerifyMeasurementBounds(t *testing.T) {
	params := trust.DefaultParams()
	v := trust.NewVerifier(params)

	for i := 0; i < 1000; i++ {
		m := v.Verify()
		offset := math.Abs(m.Asymmetry - params.LambdaAlpha)
		if offset > 0.00025 {
			t.Fatalf("noise offset %v exceeds amplitude bound", offset)
		}
	}
}

func TestVerifyFailsWithOutOfBandNoise(t *testing.T) {
	// An injected noise source outside [0, 1) drives the measurement past
	// the tolerance, exercising the otherwise-unreachable failure branch.
	v := trust.NewVerifier(trust.DefaultParams(), trust.WithRand(func() float64 { return 10 }))

	m := v.Verify()
	gt.Equal(t, m.Valid, false)
}

func TestVerifyExactTolerance(t *testing.T) {
	params := trust.DefaultParams()

	// rand()=0.5 yields zero noise: measurement equals the reference
	v := trust.NewVerifier(params, trust.WithRand(func() float64 { return 0.5 }))
	m := v.Verify()
	gt.Equal(t, m.Valid, true)
	gt.Equal(t, m.Asymmetry, params.LambdaAlpha)
}
