// File: internal/provider/repository.go
package provider

import (
	"context"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/config"
	"quickfix_backend/internal/store"
)

// Repository defines provider profile access on top of the document store.
type Repository interface {
	Create(ctx context.Context, profile *Profile) (string, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	// FindByUserID resolves the profile owned by a principal. Returns
	// common.ErrNotFound when the principal has not registered.
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	// WatchByUserID keeps the principal→provider resolution live: onChange
	// receives the current profile, or nil while none exists, on every
	// underlying change.
	WatchByUserID(ctx context.Context, userID string, onChange func(*Profile)) (store.Subscription, error)
	All(ctx context.Context) ([]Profile, error)
}

type storeRepository struct {
	store      store.Store
	collection string
}

// NewStoreRepository creates a provider repository over the document store.
func NewStoreRepository(s store.Store, cfg *config.Config) Repository {
	return &storeRepository{store: s, collection: cfg.ProvidersCollection}
}

func (r *storeRepository) Create(ctx context.Context, profile *Profile) (string, error) {
	return r.store.Create(ctx, r.collection, profile.toFields())
}

func (r *storeRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		return nil, err
	}
	return profileFromDocument(*doc), nil
}

func (r *storeRepository) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	docs, err := r.store.QueryOnce(ctx, r.collection, store.Where(fieldUserID, userID))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, common.ErrNotFound.WithDetails("No provider profile registered for this principal.")
	}
	return profileFromDocument(docs[0]), nil
}

func (r *storeRepository) WatchByUserID(ctx context.Context, userID string, onChange func(*Profile)) (store.Subscription, error) {
	preds := []store.Predicate{store.Where(fieldUserID, userID)}
	return r.store.Subscribe(ctx, r.collection, preds, func(docs []store.Document) {
		if len(docs) == 0 {
			onChange(nil)
			return
		}
		onChange(profileFromDocument(docs[0]))
	})
}

func (r *storeRepository) All(ctx context.Context) ([]Profile, error) {
	docs, err := r.store.QueryOnce(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(docs))
	for _, doc := range docs {
		profiles = append(profiles, *profileFromDocument(doc))
	}
	return profiles, nil
}
