// File: internal/booking/feed_test.go
package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfix_backend/internal/identity"
)

// drainEvents pulls every event currently queued on the feed. The in-memory
// store delivers synchronously, so anything caused by a prior call is
// already buffered.
func drainEvents(feed *Feed) []FeedEvent {
	var events []FeedEvent
	for {
		select {
		case ev, ok := <-feed.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func lastEvent(t *testing.T, feed *Feed) FeedEvent {
	t.Helper()
	events := drainEvents(feed)
	require.NotEmpty(t, events, "expected at least one feed event")
	return events[len(events)-1]
}

func TestFeedInitialSnapshotForCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profile := env.registerProvider(t, "prov-uid", "Rahim", "Electrician")

	b, err := env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: profile.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Fan not working", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	feed, err := env.bookings.OpenFeed(ctx, "cust-uid")
	require.NoError(t, err)
	defer feed.Close()

	ev := lastEvent(t, feed)
	assert.Equal(t, RoleCustomer, ev.Role)
	require.Len(t, ev.Bookings, 1)
	assert.Equal(t, b.ID, ev.Bookings[0].ID)
}

func TestFeedDeliversSnapshotOnEveryChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profile := env.registerProvider(t, "prov-uid", "Rahim", "Electrician")

	feed, err := env.bookings.OpenFeed(ctx, "cust-uid")
	require.NoError(t, err)
	defer feed.Close()

	initial := lastEvent(t, feed)
	assert.Equal(t, RoleCustomer, initial.Role)
	assert.Empty(t, initial.Bookings)

	b, err := env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: profile.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Fan not working", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	afterCreate := lastEvent(t, feed)
	require.Len(t, afterCreate.Bookings, 1)
	assert.Equal(t, StatusPending, afterCreate.Bookings[0].Status)

	_, err = env.bookings.Transition(ctx, "prov-uid", b.ID, StatusAccepted)
	require.NoError(t, err)

	afterAccept := lastEvent(t, feed)
	require.Len(t, afterAccept.Bookings, 1)
	assert.Equal(t, StatusAccepted, afterAccept.Bookings[0].Status)
}

func TestFeedRoleFlipsWhenPrincipalRegistersMidSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other := env.registerProvider(t, "other-prov-uid", "Karim", "Plumber")

	// The principal places a booking as a customer first.
	placed, err := env.bookings.Create(ctx, principal("flip-uid", "Rahim"), CreateBookingRequest{
		ProviderID: other.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Leaky tap", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	feed, err := env.bookings.OpenFeed(ctx, "flip-uid")
	require.NoError(t, err)
	defer feed.Close()

	initial := lastEvent(t, feed)
	assert.Equal(t, RoleCustomer, initial.Role)
	require.Len(t, initial.Bookings, 1)

	// Registering as a provider mid-session flips the feed to the provider
	// scope. The placed booking belongs to the customer scope and drops out.
	mine := env.registerProvider(t, "flip-uid", "Rahim Electric", "Electrician")

	flipped := lastEvent(t, feed)
	assert.Equal(t, RoleProvider, flipped.Role)
	assert.Empty(t, flipped.Bookings)

	// From now on the feed carries bookings addressed to the new profile.
	incoming, err := env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: mine.ID, ServiceDate: "2024-05-02", PreferredTime: "11:00",
		IssueDescription: "Fan not working", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	afterIncoming := lastEvent(t, feed)
	assert.Equal(t, RoleProvider, afterIncoming.Role)
	require.Len(t, afterIncoming.Bookings, 1)
	assert.Equal(t, incoming.ID, afterIncoming.Bookings[0].ID)
	assert.NotEqual(t, placed.ID, afterIncoming.Bookings[0].ID)
}

func TestFeedNeverMixesScopesAcrossFlip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other := env.registerProvider(t, "other-prov-uid", "Karim", "Plumber")

	_, err := env.bookings.Create(ctx, principal("flip-uid", "Rahim"), CreateBookingRequest{
		ProviderID: other.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Leaky tap", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	feed, err := env.bookings.OpenFeed(ctx, "flip-uid")
	require.NoError(t, err)
	defer feed.Close()
	drainEvents(feed)

	env.registerProvider(t, "flip-uid", "Rahim Electric", "Electrician")

	// Every event after the flip carries the provider scope only.
	for _, ev := range drainEvents(feed) {
		assert.Equal(t, RoleProvider, ev.Role)
		for _, b := range ev.Bookings {
			assert.NotEqual(t, "flip-uid", b.UserID,
				"customer-scope booking leaked into a provider-scope event")
		}
	}
}

func TestFeedCloseIsIdempotentAndClosesChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profile := env.registerProvider(t, "prov-uid", "Rahim", "Electrician")

	feed, err := env.bookings.OpenFeed(ctx, "cust-uid")
	require.NoError(t, err)
	drainEvents(feed)

	feed.Close()
	feed.Close()

	_, open := <-feed.Events()
	assert.False(t, open, "event channel should be closed")

	// Changes after Close are not delivered and do not panic.
	_, err = env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: profile.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Fan not working", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)
}

func TestFeedEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A provider registers and watches their dashboard.
	electrician := env.registerProvider(t, "prov-uid", "Rahim Electric", "Electrician")
	providerFeed, err := env.bookings.OpenFeed(ctx, "prov-uid")
	require.NoError(t, err)
	defer providerFeed.Close()
	assert.Equal(t, RoleProvider, lastEvent(t, providerFeed).Role)

	// A customer opens their dashboard and books the electrician.
	customerFeed, err := env.bookings.OpenFeed(ctx, "cust-uid")
	require.NoError(t, err)
	defer customerFeed.Close()
	drainEvents(customerFeed)

	customer := &identity.Principal{UID: "cust-uid", Email: "anika@example.com", DisplayName: "Anika"}
	b, err := env.bookings.Create(ctx, customer, CreateBookingRequest{
		ProviderID:       electrician.ID,
		ServiceDate:      "2024-05-01",
		PreferredTime:    "10:00",
		IssueDescription: "fan not working",
		ContactNumber:    "+8801234567",
	})
	require.NoError(t, err)

	// Both dashboards see the pending booking.
	providerView := lastEvent(t, providerFeed)
	require.Len(t, providerView.Bookings, 1)
	assert.Equal(t, StatusPending, providerView.Bookings[0].Status)
	assert.Equal(t, "Anika", providerView.Bookings[0].UserName)

	customerView := lastEvent(t, customerFeed)
	require.Len(t, customerView.Bookings, 1)
	assert.Equal(t, "Rahim Electric", customerView.Bookings[0].ProviderName)

	// The provider accepts, then completes; both dashboards follow along.
	_, err = env.bookings.Transition(ctx, "prov-uid", b.ID, StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, lastEvent(t, customerFeed).Bookings[0].Status)
	assert.Equal(t, StatusAccepted, lastEvent(t, providerFeed).Bookings[0].Status)

	_, err = env.bookings.Transition(ctx, "prov-uid", b.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, lastEvent(t, customerFeed).Bookings[0].Status)
	assert.Equal(t, StatusCompleted, lastEvent(t, providerFeed).Bookings[0].Status)
}

func TestProjectBookingsDeduplicatesAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profile := env.registerProvider(t, "prov-uid", "Rahim", "Electrician")

	first, err := env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: profile.ID, ServiceDate: "2024-05-01", PreferredTime: "10:00",
		IssueDescription: "Issue one", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)
	second, err := env.bookings.Create(ctx, principal("cust-uid", "Anika"), CreateBookingRequest{
		ProviderID: profile.ID, ServiceDate: "2024-05-02", PreferredTime: "11:00",
		IssueDescription: "Issue two", ContactNumber: "+8801234567",
	})
	require.NoError(t, err)

	bookings, _, err := env.bookings.ListForPrincipal(ctx, "cust-uid")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	if bookings[0].CreatedAt.After(bookings[1].CreatedAt) {
		assert.Equal(t, second.ID, bookings[0].ID)
		assert.Equal(t, first.ID, bookings[1].ID)
	}
	ids := map[string]int{}
	for _, b := range bookings {
		ids[b.ID]++
	}
	for id, n := range ids {
		assert.Equalf(t, 1, n, "booking %s appeared more than once", id)
	}
}
