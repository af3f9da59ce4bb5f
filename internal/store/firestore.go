// File: internal/store/firestore.go
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"quickfix_backend/internal/common"
)

const (
	watchBackoffInitial = time.Second
	watchBackoffMax     = 30 * time.Second
)

// firestoreStore implements Store on top of Cloud Firestore. Live
// subscriptions use Firestore's snapshot listeners; a dropped listener is
// re-established with bounded exponential backoff.
type firestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) Store {
	return &firestoreStore{client: client, logger: logger.Named("FirestoreStore")}
}

func (s *firestoreStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		s.logger.Error("Firestore create failed", zap.String("collection", collection), zap.Error(err))
		return "", mapFirestoreError(err)
	}
	return ref.ID, nil
}

func (s *firestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails(fmt.Sprintf("Document %s/%s not found.", collection, id))
		}
		return nil, mapFirestoreError(err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *firestoreStore) QueryOnce(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	query, err := s.buildQuery(collection, preds)
	if err != nil {
		return nil, err
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *firestoreStore) Subscribe(ctx context.Context, collection string, preds []Predicate, onChange SnapshotFunc) (Subscription, error) {
	query, err := s.buildQuery(collection, preds)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &cancelSubscription{cancel: cancel}
	go s.watch(watchCtx, collection, query, onChange)
	return sub, nil
}

// watch drives a snapshot listener until the subscription context ends.
// Every received snapshot is converted to a full Document slice and handed
// to onChange; consumers must treat each call as a complete replacement of
// the visible result set.
func (s *firestoreStore) watch(ctx context.Context, collection string, query firestore.Query, onChange SnapshotFunc) {
	backoff := watchBackoffInitial
	iter := query.Snapshots(ctx)
	defer func() { iter.Stop() }()

	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			s.logger.Warn("Snapshot listener dropped, re-establishing",
				zap.String("collection", collection),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > watchBackoffMax {
				backoff = watchBackoffMax
			}
			iter.Stop()
			iter = query.Snapshots(ctx)
			continue
		}
		backoff = watchBackoffInitial

		snapshots, err := snap.Documents.GetAll()
		if err != nil {
			s.logger.Warn("Failed to read documents from snapshot", zap.String("collection", collection), zap.Error(err))
			continue
		}
		docs := make([]Document, 0, len(snapshots))
		for _, d := range snapshots {
			docs = append(docs, Document{ID: d.Ref.ID, Data: d.Data()})
		}
		onChange(docs)
	}
}

func (s *firestoreStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return common.ErrNotFound.WithDetails(fmt.Sprintf("Document %s/%s not found.", collection, id))
		}
		s.logger.Error("Firestore update failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return mapFirestoreError(err)
	}
	return nil
}

func (s *firestoreStore) buildQuery(collection string, preds []Predicate) (firestore.Query, error) {
	query := s.client.Collection(collection).Query
	for _, p := range preds {
		if p.Op != "==" {
			return firestore.Query{}, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unsupported predicate operator %q.", p.Op))
		}
		query = query.Where(p.Field, p.Op, p.Value)
	}
	return query, nil
}

// mapFirestoreError translates gRPC status codes into the API error taxonomy.
func mapFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return common.ErrForbidden.WithDetails("The booking store denied the operation.")
	case codes.Unauthenticated:
		return common.ErrUnauthorized.WithDetails("The booking store rejected the credentials.")
	default:
		return common.NewStoreAPIError(err)
	}
}

// cancelSubscription cancels the watch context exactly once.
type cancelSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancelSubscription) Cancel() {
	s.once.Do(s.cancel)
}
