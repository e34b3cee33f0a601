package session

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
)

// OperationDraft describes one operation to create under a new session
type OperationDraft struct {
	Name     string
	AuthType model.AuthenticationType
}

// CreateInput contains parameters for creating a session with its operations
type CreateInput struct {
	Name          string
	SecurityLevel model.SecurityLevel
	AuthType      model.AuthenticationType
	Operations    []OperationDraft
}

// CreateOutput reports what was committed. On partial failure Operations
// holds exactly the drafts written before the failing index, in order.
type CreateOutput struct {
	Session    *model.Session
	Operations []*model.Operation
}

// CreateWithOperations writes a session and its operations as one logical
// batch: the session first, then each operation stamped with the session's
// store-assigned ID and its index as order. Writes are sequential without
// rollback; a failure aborts the remaining writes but already-committed
// records stay in place.
func (u *UseCase) CreateWithOperations(ctx context.Context, input *CreateInput) (*CreateOutput, error) {
	owner := u.Owner()
	now := u.now()
	session := &model.Session{
		Name:          input.Name,
		SecurityLevel: input.SecurityLevel,
		AuthType:      input.AuthType,
		Owner:         owner,
		CreatedAt:     now,
		LambdaAlpha:   u.params.LambdaAlpha,
		LambdaBeta:    u.params.LambdaBeta,
		AuthHash:      u.hasher.Derive(int(now.UnixMilli()%1000), u.rand()),
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	if err := u.authorize(ctx, "create", owner, input.SecurityLevel); err != nil {
		u.reportError(ctx, err)
		return nil, err
	}

	id, err := u.repo.CreateSession(ctx, session)
	if err != nil {
		err = goerr.Wrap(err, "failed to create session", goerr.V("name", input.Name))
		u.reportError(ctx, err)
		return nil, err
	}
	session.ID = id

	out := &CreateOutput{Session: session}
	for i, draft := range input.Operations {
		op := &model.Operation{
			Name:      draft.Name,
			ParentID:  id,
			Order:     i,
			Owner:     owner,
			CreatedAt: u.now(),
			AuthType:  draft.AuthType,
			AuthHash:  u.hasher.Derive(i, u.rand()),
		}
		if err := op.Validate(); err != nil {
			err = goerr.Wrap(err, "operation batch aborted",
				goerr.V("sessionId", id), goerr.V("committed", i))
			u.reportError(ctx, err)
			return out, err
		}

		opID, err := u.repo.CreateOperation(ctx, op)
		if err != nil {
			// No rollback: the session and the first i operations remain
			err = goerr.Wrap(err, "operation batch aborted",
				goerr.V("sessionId", id), goerr.V("committed", i))
			u.reportError(ctx, err)
			return out, err
		}
		op.ID = opID
		out.Operations = append(out.Operations, op)
	}

	return out, nil
}
