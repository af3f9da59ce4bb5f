// File: internal/store/memory_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	id, err := m.Create(ctx, "bookings", map[string]interface{}{"status": "pending", "userId": "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := m.Get(ctx, "bookings", id)
	require.NoError(t, err)
	assert.Equal(t, "pending", doc.Str("status"))

	require.NoError(t, m.UpdateFields(ctx, "bookings", id, map[string]interface{}{"status": "accepted"}))
	doc, err = m.Get(ctx, "bookings", id)
	require.NoError(t, err)
	assert.Equal(t, "accepted", doc.Str("status"))

	_, err = m.Get(ctx, "bookings", "no-such-id")
	assert.Error(t, err)
	assert.Error(t, m.UpdateFields(ctx, "bookings", "no-such-id", map[string]interface{}{"status": "accepted"}))
}

func TestMemoryStore_QueryOnceFiltersByPredicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Create(ctx, "bookings", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)
	_, err = m.Create(ctx, "bookings", map[string]interface{}{"userId": "u2"})
	require.NoError(t, err)

	docs, err := m.QueryOnce(ctx, "bookings", Where("userId", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u1", docs[0].Str("userId"))
}

func TestMemoryStore_SubscribeDeliversFullSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var snapshots [][]Document
	sub, err := m.Subscribe(ctx, "bookings", []Predicate{Where("userId", "u1")}, func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// Initial snapshot is delivered on subscribe, even when empty.
	require.Len(t, snapshots, 1)
	assert.Empty(t, snapshots[0])

	id, err := m.Create(ctx, "bookings", map[string]interface{}{"userId": "u1", "status": "pending"})
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[1], 1)

	// A non-matching document still triggers recomputation, but the snapshot
	// remains scoped to the predicate.
	_, err = m.Create(ctx, "bookings", map[string]interface{}{"userId": "u2"})
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[2], 1)

	require.NoError(t, m.UpdateFields(ctx, "bookings", id, map[string]interface{}{"status": "accepted"}))
	last := snapshots[len(snapshots)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "accepted", last[0].Str("status"))
}

func TestMemoryStore_CancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	calls := 0
	sub, err := m.Subscribe(ctx, "bookings", nil, func(docs []Document) { calls++ })
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	sub.Cancel()
	sub.Cancel() // Idempotent.

	_, err = m.Create(ctx, "bookings", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "retained handle must receive nothing after Cancel")
}

func TestMemoryStore_CancelDuringBatchSkipsLaterDelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	// Deliveries run oldest subscription first; the first callback cancels
	// the second handle before its delivery of the same batch.
	var second Subscription
	secondCalls := 0
	first, err := m.Subscribe(ctx, "bookings", nil, func([]Document) {
		if second != nil {
			second.Cancel()
		}
	})
	require.NoError(t, err)
	defer first.Cancel()

	second, err = m.Subscribe(ctx, "bookings", nil, func([]Document) { secondCalls++ })
	require.NoError(t, err)
	require.Equal(t, 1, secondCalls)

	_, err = m.Create(ctx, "bookings", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, secondCalls, "a handle cancelled mid-batch must not receive that batch's snapshot")
}

func TestMemoryStore_IndependentSubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var providerSnaps, bookingSnaps int
	provSub, err := m.Subscribe(ctx, "providers", nil, func([]Document) { providerSnaps++ })
	require.NoError(t, err)
	bookSub, err := m.Subscribe(ctx, "bookings", nil, func([]Document) { bookingSnaps++ })
	require.NoError(t, err)

	_, err = m.Create(ctx, "providers", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, providerSnaps)
	assert.Equal(t, 1, bookingSnaps)

	// Cancelling one feed must not affect the other.
	provSub.Cancel()
	_, err = m.Create(ctx, "bookings", map[string]interface{}{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, providerSnaps)
	assert.Equal(t, 2, bookingSnaps)
	bookSub.Cancel()
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Create(ctx, "bookings", map[string]interface{}{})
	assert.Error(t, err)
	_, err = m.QueryOnce(ctx, "bookings")
	assert.Error(t, err)
}
