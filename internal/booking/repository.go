// File: internal/booking/repository.go
package booking

import (
	"context"

	"quickfix_backend/internal/config"
	"quickfix_backend/internal/store"
)

// Repository defines booking access on top of the document store.
type Repository interface {
	Create(ctx context.Context, b *Booking) (string, error)
	FindByID(ctx context.Context, id string) (*Booking, error)
	// UpdateStatus writes only the status field; every other field is
	// immutable after creation.
	UpdateStatus(ctx context.Context, id string, status Status) error
	QueryByRole(ctx context.Context, role Role) ([]Booking, error)
	// WatchByRole delivers the full, role-scoped booking set on every change.
	WatchByRole(ctx context.Context, role Role, onChange func([]Booking)) (store.Subscription, error)
}

type storeRepository struct {
	store      store.Store
	collection string
}

// NewStoreRepository creates a booking repository over the document store.
func NewStoreRepository(s store.Store, cfg *config.Config) Repository {
	return &storeRepository{store: s, collection: cfg.BookingsCollection}
}

func (r *storeRepository) Create(ctx context.Context, b *Booking) (string, error) {
	return r.store.Create(ctx, r.collection, b.toFields())
}

func (r *storeRepository) FindByID(ctx context.Context, id string) (*Booking, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		return nil, err
	}
	return bookingFromDocument(*doc), nil
}

func (r *storeRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.store.UpdateFields(ctx, r.collection, id, map[string]interface{}{
		fieldStatus: string(status),
	})
}

func (r *storeRepository) QueryByRole(ctx context.Context, role Role) ([]Booking, error) {
	docs, err := r.store.QueryOnce(ctx, r.collection, role.predicate())
	if err != nil {
		return nil, err
	}
	return projectBookings(docs), nil
}

func (r *storeRepository) WatchByRole(ctx context.Context, role Role, onChange func([]Booking)) (store.Subscription, error) {
	preds := []store.Predicate{role.predicate()}
	return r.store.Subscribe(ctx, r.collection, preds, func(docs []store.Document) {
		onChange(projectBookings(docs))
	})
}
