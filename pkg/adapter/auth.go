package adapter

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Identity is an externally issued identity. A nil *Identity on the watch
// channel means "signed out".
type Identity struct {
	Subject string
}

// AuthClient is the identity provider capability: anonymous issuance,
// sign-out, and a push stream of identity-state changes.
type AuthClient interface {
	SignInAnonymously(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error

	// Watch delivers the current identity immediately, then every change.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context) <-chan *Identity
}

// MemoryAuth is an in-process identity provider. The external provider is
// an opaque collaborator; this implementation stands in for it in tests and
// local runs.
type MemoryAuth struct {
	mu      sync.Mutex
	current *Identity
	subs    map[int]chan *Identity
	nextID  int

	signInErr error
}

func NewMemoryAuth() *MemoryAuth {
	return &MemoryAuth{
		subs: make(map[int]chan *Identity),
	}
}

// FailSignIn makes subsequent SignInAnonymously calls return err
func (a *MemoryAuth) FailSignIn(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signInErr = err
}

func (a *MemoryAuth) SignInAnonymously(ctx context.Context) (*Identity, error) {
	a.mu.Lock()
	if a.signInErr != nil {
		err := a.signInErr
		a.mu.Unlock()
		return nil, err
	}
	identity := &Identity{Subject: uuid.New().String()}
	a.current = identity
	a.mu.Unlock()

	a.notify(identity)
	return identity, nil
}

func (a *MemoryAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()

	a.notify(nil)
	return nil
}

func (a *MemoryAuth) Watch(ctx context.Context) <-chan *Identity {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	ch := make(chan *Identity, 4)
	a.subs[id] = ch
	ch <- a.current
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		delete(a.subs, id)
		close(ch)
		a.mu.Unlock()
	}()

	return ch
}

func (a *MemoryAuth) notify(identity *Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- identity:
		default:
		}
	}
}
