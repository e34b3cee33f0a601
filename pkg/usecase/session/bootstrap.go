package session

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// Bootstrap requests anonymous identity issuance, gated by a fingerprint
// check: the system does not sign in against hardware it does not trust.
// A sign-in failure after a passing check is tolerated; the coordinator
// continues on the local pseudo-identity.
func (u *UseCase) Bootstrap(ctx context.Context) error {
	m := u.verifier.Verify()
	if !m.Valid {
		err := goerr.Wrap(model.ErrIntegrityFailure,
			"fingerprint verification failed, hardware may be compromised",
			goerr.V("measured", m.Asymmetry), goerr.V("reference", u.params.LambdaAlpha))
		u.reportError(ctx, err)
		return err
	}

	identity, err := u.auth.SignInAnonymously(ctx)
	if err != nil {
		logging.From(ctx).Warn("anonymous sign-in failed, continuing with local identity", "error", err)
		return nil
	}

	u.setIdentity(identity)
	return nil
}
