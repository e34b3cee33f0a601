package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Repository on a Firestore collection
type Firestore struct {
	client     *firestore.Client
	collection string
}

// FirestoreOption is a functional option for Firestore
type FirestoreOption func(*Firestore)

// WithCollection overrides the default collection name
func WithCollection(name string) FirestoreOption {
	return func(r *Firestore) {
		r.collection = name
	}
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	r := &Firestore{
		client:     client,
		collection: defaultCollection,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) records() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *Firestore) activeQuery() firestore.Query {
	return r.records().Where("securityLevel", "!=", string(model.SecurityLevelNone))
}

func (r *Firestore) CreateSession(ctx context.Context, session *model.Session) (model.SessionID, error) {
	ref := r.records().NewDoc()
	rec := recordFromSession(session)

	if _, err := ref.Set(ctx, rec); err != nil {
		return "", model.ClassifyStoreError(goerr.Wrap(err, "failed to write session", goerr.V("id", ref.ID)))
	}
	return model.SessionID(ref.ID), nil
}

func (r *Firestore) CreateOperation(ctx context.Context, op *model.Operation) (model.SessionID, error) {
	ref := r.records().NewDoc()
	rec := recordFromOperation(op)

	if _, err := ref.Set(ctx, rec); err != nil {
		return "", model.ClassifyStoreError(goerr.Wrap(err, "failed to write operation",
			goerr.V("id", ref.ID), goerr.V("parentId", op.ParentID)))
	}
	return model.SessionID(ref.ID), nil
}

func (r *Firestore) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	snap, err := r.records().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrSessionNotFound, "no such session", goerr.V("id", id))
		}
		return nil, model.ClassifyStoreError(goerr.Wrap(err, "failed to get session", goerr.V("id", id)))
	}

	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session record", goerr.V("id", id))
	}
	rec.ID = snap.Ref.ID

	return rec.toSession()
}

func (r *Firestore) MergeSession(ctx context.Context, session *model.Session) error {
	rec := recordFromSession(session)

	ref := r.records().Doc(string(session.ID))
	if _, err := ref.Set(ctx, rec.mergeData(), firestore.MergeAll); err != nil {
		return model.ClassifyStoreError(goerr.Wrap(err, "failed to merge session", goerr.V("id", session.ID)))
	}
	return nil
}

func (r *Firestore) DeleteRecord(ctx context.Context, id model.SessionID) error {
	if _, err := r.records().Doc(string(id)).Delete(ctx); err != nil {
		return model.ClassifyStoreError(goerr.Wrap(err, "failed to delete record", goerr.V("id", id)))
	}
	return nil
}

func (r *Firestore) ListOperations(ctx context.Context, parentID model.SessionID) ([]*model.Operation, error) {
	query := r.records().
		Where("parentId", "==", string(parentID)).
		OrderBy("order", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var ops []*model.Operation
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.ClassifyStoreError(goerr.Wrap(err, "failed to iterate operations",
				goerr.V("parentId", parentID)))
		}

		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode operation record", goerr.V("id", snap.Ref.ID))
		}
		rec.ID = snap.Ref.ID

		op, err := rec.toOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (r *Firestore) ListActiveSessions(ctx context.Context) ([]*model.Session, error) {
	query := r.activeQuery().OrderBy("createdTime", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var sessions []*model.Session
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.ClassifyStoreError(goerr.Wrap(err, "failed to iterate sessions"))
		}

		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session record", goerr.V("id", snap.Ref.ID))
		}
		rec.ID = snap.Ref.ID

		session, err := rec.toSession()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (r *Firestore) CountActiveSessions(ctx context.Context) (int64, error) {
	query := r.activeQuery()
	agg := query.NewAggregationQuery().WithCount("count")
	result, err := agg.Get(ctx)
	if err != nil {
		return 0, model.ClassifyStoreError(goerr.Wrap(err, "failed to count sessions"))
	}

	value, ok := result["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected aggregation result", goerr.V("result", result))
	}
	return value.GetIntegerValue(), nil
}

func (r *Firestore) WatchSessions(ctx context.Context) (<-chan []*model.Session, error) {
	query := r.activeQuery().OrderBy("createdTime", firestore.Desc)

	ch := make(chan []*model.Session, 1)
	snaps := query.Snapshots(ctx)

	go func() {
		defer close(ch)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logging.From(ctx).Warn("session watch stream ended", "error", err)
				}
				return
			}

			sessions := make([]*model.Session, 0, snap.Size)
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logging.From(ctx).Warn("failed to read session snapshot", "error", err)
				continue
			}
			for _, doc := range docs {
				var rec record
				if err := doc.DataTo(&rec); err != nil {
					logging.From(ctx).Warn("skipping undecodable record", "id", doc.Ref.ID, "error", err)
					continue
				}
				rec.ID = doc.Ref.ID
				session, err := rec.toSession()
				if err != nil {
					continue
				}
				sessions = append(sessions, session)
			}

			select {
			case ch <- sessions:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (r *Firestore) WatchOperations(ctx context.Context, parentID model.SessionID) (<-chan []*model.Operation, error) {
	query := r.records().
		Where("parentId", "==", string(parentID)).
		OrderBy("order", firestore.Asc)

	ch := make(chan []*model.Operation, 1)
	snaps := query.Snapshots(ctx)

	go func() {
		defer close(ch)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logging.From(ctx).Warn("operation watch stream ended", "error", err)
				}
				return
			}

			ops := make([]*model.Operation, 0, snap.Size)
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logging.From(ctx).Warn("failed to read operation snapshot", "error", err)
				continue
			}
			for _, doc := range docs {
				var rec record
				if err := doc.DataTo(&rec); err != nil {
					logging.From(ctx).Warn("skipping undecodable record", "id", doc.Ref.ID, "error", err)
					continue
				}
				rec.ID = doc.Ref.ID
				op, err := rec.toOperation()
				if err != nil {
					continue
				}
				ops = append(ops, op)
			}

			select {
			case ch <- ops:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
