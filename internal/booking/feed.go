// File: internal/booking/feed.go
package booking

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"quickfix_backend/internal/provider"
	"quickfix_backend/internal/store"
)

// FeedEvent is one dashboard update: the role the snapshot was computed for
// and the full, ordered booking set for that role.
type FeedEvent struct {
	Role     string    `json:"role"`
	Bookings []Booking `json:"bookings"`
}

// Feed is a live, role-aware dashboard stream for one principal. It watches
// the provider registry to keep the principal's role current and re-projects
// the booking set whenever the role or the underlying bookings change. When
// the role flips mid-session (the principal registers as a provider), the
// old booking subscription is torn down before the new one is opened, so no
// event ever mixes the two scopes.
type Feed struct {
	ctx    context.Context
	uid    string
	repo   Repository
	logger *zap.Logger

	events chan FeedEvent

	mu          sync.Mutex
	role        Role
	hasRole     bool
	registrySub store.Subscription
	bookingSub  store.Subscription
	closed      bool
}

const feedBuffer = 8

func newFeed(ctx context.Context, uid string, repo Repository, logger *zap.Logger) *Feed {
	return &Feed{
		ctx:    ctx,
		uid:    uid,
		repo:   repo,
		logger: logger,
		events: make(chan FeedEvent, feedBuffer),
	}
}

// Events returns the stream of dashboard updates. The channel is closed by
// Close.
func (f *Feed) Events() <-chan FeedEvent {
	return f.events
}

// Close tears down both subscriptions and closes the event channel.
// Safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	registrySub, bookingSub := f.registrySub, f.bookingSub
	f.registrySub, f.bookingSub = nil, nil
	close(f.events)
	f.mu.Unlock()

	if bookingSub != nil {
		bookingSub.Cancel()
	}
	if registrySub != nil {
		registrySub.Cancel()
	}
}

// onRegistryChange recomputes the role from the registry resolution and, if
// it changed, swaps the booking subscription.
func (f *Feed) onRegistryChange(profile *provider.Profile) {
	role := CustomerRole(f.uid)
	if profile != nil {
		role = ProviderRole(profile.ID)
	}
	f.setRole(role)
}

func (f *Feed) setRole(role Role) {
	f.mu.Lock()
	if f.closed || (f.hasRole && f.role == role) {
		f.mu.Unlock()
		return
	}
	f.role = role
	f.hasRole = true
	old := f.bookingSub
	f.bookingSub = nil
	f.mu.Unlock()

	// Tear down before resubscribing so a stale-scope snapshot can never
	// arrive after the first event for the new role.
	if old != nil {
		old.Cancel()
	}

	sub, err := f.repo.WatchByRole(f.ctx, role, func(bookings []Booking) {
		f.push(FeedEvent{Role: role.Kind(), Bookings: bookings})
	})
	if err != nil {
		f.logger.Error("Failed to open booking subscription for feed",
			zap.String("uid", f.uid),
			zap.String("role", role.Kind()),
			zap.Error(err),
		)
		return
	}

	f.mu.Lock()
	if f.closed || f.role != role {
		f.mu.Unlock()
		sub.Cancel()
		return
	}
	f.bookingSub = sub
	f.mu.Unlock()
}

// push enqueues an event without ever blocking a store callback. Each event
// carries a full snapshot, so when the consumer lags the oldest queued event
// is dropped in favor of the newer one.
func (f *Feed) push(ev FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.events <- ev:
			return
		default:
		}
		select {
		case <-f.events:
		default:
		}
	}
}
