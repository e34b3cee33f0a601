package trust

import (
	"encoding/base64"
	"math"
	"strconv"
)

// HashLength is the maximum length of a derived auth hash. Degenerate
// challenges whose value renders as a short decimal yield shorter tokens.
const HashLength = 16

// HashGenerator derives short authentication tokens from two numeric
// challenge inputs and the fixed trust parameters. The derivation is a pure
// function of (n, eMin, λ^, λ²): equal inputs always yield equal tokens.
type HashGenerator struct {
	params Params
}

// NewHashGenerator creates a generator bound to the given parameters
func NewHashGenerator(params Params) *HashGenerator {
	return &HashGenerator{params: params}
}

// Derive computes the auth hash for a challenge pair. The challenge value
// sin(n·seed)·cos(eMin·seed) is rendered as its shortest decimal string,
// base64-encoded and truncated to HashLength characters.
func (g *HashGenerator) Derive(n int, eMin float64) string {
	seed := g.params.Seed()
	value := math.Sin(float64(n)*seed) * math.Cos(eMin*seed)

	encoded := base64.StdEncoding.EncodeToString([]byte(formatDecimal(value)))
	if len(encoded) > HashLength {
		encoded = encoded[:HashLength]
	}
	return encoded
}

// formatDecimal renders a float as its shortest round-trip decimal string
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
