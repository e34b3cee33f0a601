package session

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// Update merges the given session fields into the stored record, gated by a
// fresh fingerprint check. A failing check leaves the store untouched and
// raises an integrity error; a passing check stamps the measured asymmetry
// onto the record.
func (u *UseCase) Update(ctx context.Context, session *model.Session) error {
	m := u.verifier.Verify()
	if !m.Valid {
		err := goerr.Wrap(model.ErrIntegrityFailure, "fingerprint mismatch during session update",
			goerr.V("id", session.ID), goerr.V("measured", m.Asymmetry))
		u.reportError(ctx, err)
		return err
	}

	if err := session.Validate(); err != nil {
		return err
	}

	existing, err := u.repo.GetSession(ctx, session.ID)
	if err != nil {
		u.reportError(ctx, err)
		return err
	}

	if err := u.authorize(ctx, "update", existing.Owner, existing.SecurityLevel); err != nil {
		u.reportError(ctx, err)
		return err
	}

	if session.SecurityLevel.Rank() < existing.SecurityLevel.Rank() {
		logging.From(ctx).Warn("security level downgraded",
			"id", session.ID, "from", existing.SecurityLevel, "to", session.SecurityLevel)
	}

	session.AsymmetryMeasurement = m.Asymmetry
	if err := u.repo.MergeSession(ctx, session); err != nil {
		err = goerr.Wrap(err, "failed to update session", goerr.V("id", session.ID))
		u.reportError(ctx, err)
		return err
	}
	return nil
}
