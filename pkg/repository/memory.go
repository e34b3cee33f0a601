package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
)

// Memory implements Repository in process memory. It mirrors the store's
// observable behavior (filters, ordering, watch re-emission) and adds
// failure injection, so the readiness and trust flows can be tested without
// a Firestore project.
type Memory struct {
	mu      sync.Mutex
	records map[string]*record

	sessionSubs   map[int]chan []*model.Session
	operationSubs map[int]*operationSub
	nextSubID     int

	countFailures  int
	countErr       error
	watchSessCalls int
}

type operationSub struct {
	parentID string
	ch       chan []*model.Operation
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		records:       make(map[string]*record),
		sessionSubs:   make(map[int]chan []*model.Session),
		operationSubs: make(map[int]*operationSub),
	}
}

// FailCounts makes the next n calls to CountActiveSessions return err
func (r *Memory) FailCounts(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countFailures = n
	r.countErr = err
}

// SessionWatchCalls reports how many times WatchSessions has been invoked
func (r *Memory) SessionWatchCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watchSessCalls
}

func (r *Memory) CreateSession(ctx context.Context, session *model.Session) (model.SessionID, error) {
	rec := recordFromSession(session)
	rec.ID = uuid.New().String()

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()

	r.broadcast()
	return model.SessionID(rec.ID), nil
}

func (r *Memory) CreateOperation(ctx context.Context, op *model.Operation) (model.SessionID, error) {
	rec := recordFromOperation(op)
	rec.ID = uuid.New().String()

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()

	r.broadcast()
	return model.SessionID(rec.ID), nil
}

func (r *Memory) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	r.mu.Lock()
	rec, ok := r.records[string(id)]
	r.mu.Unlock()

	if !ok {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "no such session", goerr.V("id", id))
	}
	return rec.toSession()
}

func (r *Memory) MergeSession(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	existing, ok := r.records[string(session.ID)]
	if !ok {
		r.mu.Unlock()
		return goerr.Wrap(model.ErrSessionNotFound, "no such session", goerr.V("id", session.ID))
	}

	merged := recordFromSession(session)
	merged.ID = existing.ID
	if merged.SecurityLevel == "" {
		merged.SecurityLevel = existing.SecurityLevel
	}
	if merged.AuthenticationType == "" {
		merged.AuthenticationType = existing.AuthenticationType
	}
	if merged.AuthHash == "" {
		merged.AuthHash = existing.AuthHash
	}
	if merged.AsymmetryMeasurement == 0 {
		merged.AsymmetryMeasurement = existing.AsymmetryMeasurement
	}
	if merged.LambdaAlpha == 0 {
		merged.LambdaAlpha = existing.LambdaAlpha
	}
	if merged.LambdaBeta == 0 {
		merged.LambdaBeta = existing.LambdaBeta
	}
	if merged.CreatedTime.IsZero() {
		merged.CreatedTime = existing.CreatedTime
	}
	r.records[merged.ID] = merged
	r.mu.Unlock()

	r.broadcast()
	return nil
}

func (r *Memory) DeleteRecord(ctx context.Context, id model.SessionID) error {
	r.mu.Lock()
	delete(r.records, string(id))
	r.mu.Unlock()

	r.broadcast()
	return nil
}

func (r *Memory) ListOperations(ctx context.Context, parentID model.SessionID) ([]*model.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operationsLocked(string(parentID)), nil
}

func (r *Memory) ListActiveSessions(ctx context.Context) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSessionsLocked(), nil
}

func (r *Memory) CountActiveSessions(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.countFailures > 0 {
		r.countFailures--
		return 0, r.countErr
	}
	return int64(len(r.activeSessionsLocked())), nil
}

func (r *Memory) WatchSessions(ctx context.Context) (<-chan []*model.Session, error) {
	r.mu.Lock()
	r.watchSessCalls++
	id := r.nextSubID
	r.nextSubID++
	ch := make(chan []*model.Session, 1)
	r.sessionSubs[id] = ch
	ch <- r.activeSessionsLocked()
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.sessionSubs, id)
		close(ch)
		r.mu.Unlock()
	}()

	return ch, nil
}

func (r *Memory) WatchOperations(ctx context.Context, parentID model.SessionID) (<-chan []*model.Operation, error) {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	sub := &operationSub{
		parentID: string(parentID),
		ch:       make(chan []*model.Operation, 1),
	}
	r.operationSubs[id] = sub
	sub.ch <- r.operationsLocked(sub.parentID)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.operationSubs, id)
		close(sub.ch)
		r.mu.Unlock()
	}()

	return sub.ch, nil
}

func (r *Memory) activeSessionsLocked() []*model.Session {
	sessions := make([]*model.Session, 0)
	for _, rec := range r.records {
		if !rec.isSession() {
			continue
		}
		if !model.SecurityLevel(rec.SecurityLevel).Active() {
			continue
		}
		session, err := rec.toSession()
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

func (r *Memory) operationsLocked(parentID string) []*model.Operation {
	ops := make([]*model.Operation, 0)
	for _, rec := range r.records {
		if !rec.isOperation() || rec.ParentID != parentID {
			continue
		}
		op, err := rec.toOperation()
		if err != nil {
			continue
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Order < ops[j].Order
	})
	return ops
}

// broadcast re-emits current query results to all watchers. Channels are
// conflated: a slow watcher sees only the latest state, never a backlog.
func (r *Memory) broadcast() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.sessionSubs {
		conflate(ch, r.activeSessionsLocked())
	}
	for _, sub := range r.operationSubs {
		conflate(sub.ch, r.operationsLocked(sub.parentID))
	}
}

func conflate[T any](ch chan T, v T) {
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
