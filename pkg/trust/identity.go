package trust

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// LocalIdentityPrefix marks identities generated locally instead of being
// issued by the external identity provider.
const LocalIdentityPrefix = "quantum-"

const identitySuffixLength = 8

// NewLocalIdentity generates a process-local pseudo-identity of the form
// "quantum-<uuid>-<8 chars>". The suffix encodes an entropy draw scaled by
// both trust parameters; u is expected to be a uniform draw from [0, 1).
func NewLocalIdentity(params Params, u float64) string {
	entropy := u * params.LambdaAlpha * params.LambdaBeta
	suffix := base64.StdEncoding.EncodeToString([]byte(formatDecimal(entropy)))
	if len(suffix) > identitySuffixLength {
		suffix = suffix[:identitySuffixLength]
	}
	return LocalIdentityPrefix + uuid.New().String() + "-" + suffix
}
