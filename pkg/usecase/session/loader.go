package session

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

// Readiness probe schedule: the count probe retries with exponential
// backoff until the store answers or the attempt cap is reached.
const (
	probeInitialDelay = time.Second
	probeMaxDelay     = 3 * time.Second
	probeMaxAttempts  = 15
)

// StartLoader begins a readiness probe sequence, superseding any sequence
// already in flight: the previous generation is cancelled and anything it
// still publishes is dropped.
func (u *UseCase) StartLoader(ctx context.Context) {
	lctx, cancel := context.WithCancel(ctx)

	u.mu.Lock()
	if u.cancelPrev != nil {
		u.cancelPrev()
	}
	u.cancelPrev = cancel
	u.gen++
	gen := u.gen
	u.mu.Unlock()

	go u.runLoader(lctx, gen)
}

// Ready reports whether the store probe has succeeded for the current
// loader generation.
func (u *UseCase) Ready() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ready
}

// Sessions returns the most recently published session list
func (u *UseCase) Sessions() []*model.Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sessions
}

// WatchSessionList subscribes to the published session list. The current
// list is delivered first, then every republication. The channel closes
// when ctx is cancelled.
func (u *UseCase) WatchSessionList(ctx context.Context) <-chan []*model.Session {
	u.mu.Lock()
	id := u.nextSubID
	u.nextSubID++
	ch := make(chan []*model.Session, 1)
	u.subs[id] = ch
	if u.sessions != nil {
		ch <- u.sessions
	}
	u.mu.Unlock()

	go func() {
		<-ctx.Done()
		u.mu.Lock()
		delete(u.subs, id)
		close(ch)
		u.mu.Unlock()
	}()

	return ch
}

func (u *UseCase) runLoader(ctx context.Context, gen uint64) {
	count, err := u.probeCount(ctx)
	if err != nil {
		if ctx.Err() == nil {
			u.reportError(ctx, err)
		}
		u.publish(gen, []*model.Session{})
		return
	}

	u.setReady(gen, true)

	// An empty store needs no streaming subscription
	if count == 0 {
		u.publish(gen, []*model.Session{})
		return
	}

	ch, err := u.repo.WatchSessions(ctx)
	if err != nil {
		err = model.ClassifyStoreError(err)
		u.reportError(ctx, err)
		u.publish(gen, []*model.Session{})
		return
	}

	for list := range ch {
		u.publish(gen, list)
	}
}

// probeCount calls the store's active-session count with bounded
// exponential backoff. It returns the count on first success, or
// ErrStoreUnavailable after exhausting the attempt cap.
func (u *UseCase) probeCount(ctx context.Context) (int64, error) {
	delay := u.probeInitialDelay
	var lastErr error

	for attempt := 1; attempt <= probeMaxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return 0, ctx.Err()
			}
			delay *= 2
			if delay > u.probeMaxDelay {
				delay = u.probeMaxDelay
			}
		}

		count, err := u.repo.CountActiveSessions(ctx)
		if err == nil {
			return count, nil
		}
		lastErr = err
		logging.From(ctx).Warn("session count probe failed",
			"attempt", attempt, "max", probeMaxAttempts, "error", err)
	}

	return 0, goerr.Wrap(model.ErrStoreUnavailable, "count probe exhausted retries",
		goerr.V("attempts", probeMaxAttempts), goerr.V("cause", lastErr))
}

// publish replaces the published session list. Publications from a
// superseded loader generation are dropped.
func (u *UseCase) publish(gen uint64, list []*model.Session) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if gen != u.gen {
		return
	}
	u.sessions = list
	for _, ch := range u.subs {
		conflate(ch, list)
	}
}

func (u *UseCase) setReady(gen uint64, ready bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if gen != u.gen {
		return
	}
	u.ready = ready
}

// conflate delivers the latest value without blocking: a slow subscriber's
// stale pending value is replaced rather than queued behind.
func conflate(ch chan []*model.Session, v []*model.Session) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
