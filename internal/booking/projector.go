// File: internal/booking/projector.go
package booking

import (
	"sort"

	"quickfix_backend/internal/store"
)

// Role kinds for the dashboard view.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

// Role selects which side of the marketplace a dashboard shows. A customer
// role scopes to bookings the principal placed; a provider role scopes to
// bookings addressed to the principal's provider profile. Roles are
// comparable, so a feed can detect a mid-session flip.
type Role struct {
	kind string
	id   string
}

// CustomerRole scopes bookings to those placed by the given auth UID.
func CustomerRole(userID string) Role {
	return Role{kind: RoleCustomer, id: userID}
}

// ProviderRole scopes bookings to those addressed to the given provider
// profile id.
func ProviderRole(providerID string) Role {
	return Role{kind: RoleProvider, id: providerID}
}

// Kind returns "customer" or "provider".
func (r Role) Kind() string { return r.kind }

// IsProvider reports whether the role is the provider side.
func (r Role) IsProvider() bool { return r.kind == RoleProvider }

// predicate derives the store filter for the role.
func (r Role) predicate() store.Predicate {
	if r.kind == RoleProvider {
		return store.Where(fieldProviderID, r.id)
	}
	return store.Where(fieldUserID, r.id)
}

// projectBookings converts a raw snapshot into the dashboard view: unique by
// id, most recent first. The store does not guarantee order or uniqueness
// across snapshot deliveries, so both are normalized here.
func projectBookings(docs []store.Document) []Booking {
	seen := make(map[string]struct{}, len(docs))
	bookings := make([]Booking, 0, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		bookings = append(bookings, *bookingFromDocument(doc))
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID < bookings[j].ID
	})
	return bookings
}
