package repository

import (
	"context"

	"github.com/tlacaelel666/guardian/pkg/model"
)

// Repository defines the interface for session/operation persistence.
//
// Multi-record sequences (create-with-children, cascading deletes) belong
// to the caller: the store offers only primitive writes, and partial
// failures leave already-committed records in place.
type Repository interface {
	// CreateSession writes a new top-level session and returns the
	// store-assigned identifier.
	CreateSession(ctx context.Context, session *model.Session) (model.SessionID, error)

	// CreateOperation writes a single operation record and returns the
	// store-assigned identifier.
	CreateOperation(ctx context.Context, op *model.Operation) (model.SessionID, error)

	// GetSession retrieves a top-level session by ID
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)

	// MergeSession merges the given fields into the existing record
	MergeSession(ctx context.Context, session *model.Session) error

	// DeleteRecord removes a single record (session or operation) by ID
	DeleteRecord(ctx context.Context, id model.SessionID) error

	// ListOperations retrieves the operations of a session, ordered by
	// Order ascending.
	ListOperations(ctx context.Context, parentID model.SessionID) ([]*model.Operation, error)

	// ListActiveSessions retrieves sessions with securityLevel != none,
	// ordered by creation time descending.
	ListActiveSessions(ctx context.Context) ([]*model.Session, error)

	// CountActiveSessions returns the server-side count of sessions with
	// securityLevel != none.
	CountActiveSessions(ctx context.Context) (int64, error)

	// WatchSessions streams the full active session list, re-emitting it
	// whenever the underlying set changes. The channel closes when ctx is
	// cancelled.
	WatchSessions(ctx context.Context) (<-chan []*model.Session, error)

	// WatchOperations streams the ordered operations of a session,
	// re-emitting on every change. The channel closes when ctx is cancelled.
	WatchOperations(ctx context.Context, parentID model.SessionID) (<-chan []*model.Operation, error)
}
