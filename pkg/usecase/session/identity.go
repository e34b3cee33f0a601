package session

import (
	"context"

	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/trust"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// Owner resolves the acting identity: the external identity's subject when
// one is present, otherwise a locally generated pseudo-identity. The local
// identity is created lazily once and reused for the lifetime of the
// process, including across external sign-out.
func (u *UseCase) Owner() string {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.externalUID != "" {
		return u.externalUID
	}
	if u.localUID == "" {
		u.localUID = trust.NewLocalIdentity(u.params, u.rand())
	}
	return u.localUID
}

// setIdentity records an identity-state change. A nil identity clears the
// external subject, falling back to the local pseudo-identity.
func (u *UseCase) setIdentity(identity *adapter.Identity) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if identity != nil {
		u.externalUID = identity.Subject
	} else {
		u.externalUID = ""
	}
}

// Run follows the identity provider's state stream: every change adopts the
// new identity (or the local fallback) and supersedes the running readiness
// probe with a fresh one. Run blocks until ctx is cancelled.
func (u *UseCase) Run(ctx context.Context) {
	for identity := range u.auth.Watch(ctx) {
		u.setIdentity(identity)
		logging.From(ctx).Debug("identity changed", "owner", u.Owner())
		u.StartLoader(ctx)
	}
}

// SignOut terminates the external identity session. The published session
// list resets to empty until the next readiness probe completes.
func (u *UseCase) SignOut(ctx context.Context) error {
	if err := u.auth.SignOut(ctx); err != nil {
		u.reportError(ctx, err)
		return err
	}

	u.mu.Lock()
	gen := u.gen
	u.mu.Unlock()
	u.publish(gen, []*model.Session{})
	return nil
}
