package session

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// Delete removes a session and all of its operations, gated by a fresh
// fingerprint check. Operations are deleted in order before the session
// itself so an operation never outlives its parent. Deletion is best-effort
// sequential: a failure partway leaves the session and the remaining
// operations in place.
func (u *UseCase) Delete(ctx context.Context, id model.SessionID) error {
	m := u.verifier.Verify()
	if !m.Valid {
		err := goerr.Wrap(model.ErrIntegrityFailure, "fingerprint mismatch, cannot delete session",
			goerr.V("id", id), goerr.V("measured", m.Asymmetry))
		u.reportError(ctx, err)
		return err
	}

	existing, err := u.repo.GetSession(ctx, id)
	if err != nil {
		u.reportError(ctx, err)
		return err
	}

	if err := u.authorize(ctx, "delete", existing.Owner, existing.SecurityLevel); err != nil {
		u.reportError(ctx, err)
		return err
	}

	ops, err := u.repo.ListOperations(ctx, id)
	if err != nil {
		u.reportError(ctx, err)
		return err
	}

	for _, op := range ops {
		if err := u.repo.DeleteRecord(ctx, op.ID); err != nil {
			err = goerr.Wrap(err, "cascade delete aborted",
				goerr.V("sessionId", id), goerr.V("operationId", op.ID))
			u.reportError(ctx, err)
			return err
		}
	}

	if err := u.repo.DeleteRecord(ctx, id); err != nil {
		err = goerr.Wrap(err, "failed to delete session", goerr.V("id", id))
		u.reportError(ctx, err)
		return err
	}

	logging.From(ctx).Info("session and operations deleted", "id", id, "operations", len(ops))
	return nil
}
