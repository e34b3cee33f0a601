package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/policy"
	"github.com/tlacaelel666/guardian/pkg/repository"
	"github.com/tlacaelel666/guardian/pkg/trust"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// UseCase coordinates the session trust chain: it resolves the acting
// identity, gates mutations behind the fingerprint check and the
// authorization policy, and publishes the readiness flag and the live
// session list.
type UseCase struct {
	repo     repository.Repository
	verifier *trust.Verifier
	hasher   *trust.HashGenerator
	params   trust.Params
	authz    *policy.Engine
	auth     adapter.AuthClient
	notifier adapter.Notifier

	rand func() float64
	now  func() time.Time

	probeInitialDelay time.Duration
	probeMaxDelay     time.Duration

	mu          sync.Mutex
	localUID    string
	externalUID string
	gen         uint64
	cancelPrev  context.CancelFunc
	ready       bool
	sessions    []*model.Session
	subs        map[int]chan []*model.Session
	nextSubID   int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithAuthz sets the mutation authorization policy engine
func WithAuthz(engine *policy.Engine) Option {
	return func(u *UseCase) {
		u.authz = engine
	}
}

// WithAuth sets the external identity provider
func WithAuth(auth adapter.AuthClient) Option {
	return func(u *UseCase) {
		u.auth = auth
	}
}

// WithNotifier sets the notification sink
func WithNotifier(n adapter.Notifier) Option {
	return func(u *UseCase) {
		u.notifier = n
	}
}

// WithRand replaces the entropy source used for challenge inputs and
// pseudo-identity generation.
func WithRand(f func() float64) Option {
	return func(u *UseCase) {
		u.rand = f
	}
}

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

// WithProbeDelays overrides the readiness probe backoff schedule.
// The attempt cap is fixed; only the delays shrink, so tests can run the
// full retry sequence quickly.
func WithProbeDelays(initial, max time.Duration) Option {
	return func(u *UseCase) {
		u.probeInitialDelay = initial
		u.probeMaxDelay = max
	}
}

// New creates a session trust coordinator
func New(
	repo repository.Repository,
	verifier *trust.Verifier,
	hasher *trust.HashGenerator,
	params trust.Params,
	opts ...Option,
) *UseCase {
	u := &UseCase{
		repo:     repo,
		verifier: verifier,
		hasher:   hasher,
		params:   params,
		auth:     adapter.NewMemoryAuth(),
		notifier: adapter.NewLogNotifier(logging.Default()),
		rand:     rand.Float64,
		now:      time.Now,

		probeInitialDelay: probeInitialDelay,
		probeMaxDelay:     probeMaxDelay,

		subs: make(map[int]chan []*model.Session),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// authorize runs the policy gate for one mutation. A nil engine disables
// the gate.
func (u *UseCase) authorize(ctx context.Context, action, owner string, level model.SecurityLevel) error {
	if u.authz == nil {
		return nil
	}

	actor := u.Owner()
	allowed, err := u.authz.Allow(ctx, &policy.Input{
		Actor:         actor,
		Action:        action,
		Owner:         owner,
		SecurityLevel: string(level),
	})
	if err != nil {
		return goerr.Wrap(err, "authorization policy evaluation failed")
	}
	if !allowed {
		return goerr.Wrap(model.ErrNotAuthorized, "policy rejected "+action,
			goerr.V("actor", actor), goerr.V("owner", owner))
	}
	return nil
}

// reportError surfaces an error through the notification sink and the log.
// Message and display duration follow the error taxonomy.
func (u *UseCase) reportError(ctx context.Context, err error) {
	logging.From(ctx).Error("security error", "error", err)

	message := err.Error()
	duration := 5 * time.Second
	switch {
	case errors.Is(err, model.ErrIntegrityFailure):
		message = "SECURITY BREACH: " + err.Error()
		duration = 15 * time.Second
	case errors.Is(err, model.ErrPermissionDenied):
		message = "Error communicating with the session store. Check the store's access configuration."
		duration = 10 * time.Second
	case errors.Is(err, model.ErrProtocolGeneration):
		duration = 10 * time.Second
	}

	u.notifier.Show(message, "Secure Close", duration)
}

// WatchOperations streams the ordered operations of a session
func (u *UseCase) WatchOperations(ctx context.Context, parentID model.SessionID) (<-chan []*model.Operation, error) {
	ch, err := u.repo.WatchOperations(ctx, parentID)
	if err != nil {
		err = model.ClassifyStoreError(err)
		u.reportError(ctx, err)
		return nil, err
	}
	return ch, nil
}
