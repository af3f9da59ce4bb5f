// File: internal/store/store.go
// Package store abstracts the remote document store backing bookings and
// provider profiles: create, get/query, partial update, and predicate-filtered
// live subscription. The store is the single source of truth; there is no
// client-side locking, so concurrent writers race and the store's last
// accepted write wins.
package store

import (
	"context"
	"time"
)

// Document is one record returned from a collection. Data holds the raw
// field map as stored.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Str returns the named field as a string, or "" when absent or mistyped.
func (d Document) Str(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Int returns the named field as an int. Firestore decodes integers as
// int64 and JSON round-trips produce float64, so both are accepted.
func (d Document) Int(key string) int {
	switch v := d.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Time returns the named field as a time.Time, or the zero time.
func (d Document) Time(key string) time.Time {
	t, _ := d.Data[key].(time.Time)
	return t
}

// Predicate is a single field filter. Only equality is needed by this
// application; both backends reject anything else.
type Predicate struct {
	Field string
	Op    string
	Value interface{}
}

// Where builds an equality predicate.
func Where(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: "==", Value: value}
}

// SnapshotFunc receives the full recomputed result set for a subscription's
// predicate after every underlying change batch. Each call replaces the
// previous snapshot entirely; it is never a delta.
type SnapshotFunc func(docs []Document)

// Subscription is a scoped resource bound to one (collection, predicate)
// pair. Cancel is idempotent; after it returns no further snapshots are
// delivered to the callback. Independent subscriptions never share a handle.
type Subscription interface {
	Cancel()
}

// Store is the remote document store contract consumed by the rest of the
// application. All methods honor context cancellation and deadlines.
type Store interface {
	// Create adds a document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	// Get fetches a single document by id.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// QueryOnce runs a one-shot predicate query.
	QueryOnce(ctx context.Context, collection string, preds ...Predicate) ([]Document, error)
	// Subscribe establishes a live query. The current result set is
	// delivered as the first snapshot, then again after every change.
	Subscribe(ctx context.Context, collection string, preds []Predicate, onChange SnapshotFunc) (Subscription, error)
	// UpdateFields patches the named fields of an existing document.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]interface{}) error
}
