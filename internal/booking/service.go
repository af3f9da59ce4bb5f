// File: internal/booking/service.go
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/provider"
)

// Service defines booking business logic: creation, role-scoped listing,
// lifecycle transitions, and live dashboard feeds.
type Service interface {
	Create(ctx context.Context, principal *identity.Principal, req CreateBookingRequest) (*Booking, error)
	// ListForPrincipal returns the principal's dashboard view: bookings
	// addressed to their provider profile when they are a provider, bookings
	// they placed otherwise. Most recent first.
	ListForPrincipal(ctx context.Context, principalUID string) ([]Booking, string, error)
	// Transition advances a booking one step along its lifecycle. Only the
	// provider the booking is addressed to may call it. An illegal step is
	// rejected without writing.
	Transition(ctx context.Context, principalUID, bookingID string, next Status) (*Booking, error)
	// OpenFeed opens a live dashboard stream for the principal. The caller
	// must Close the returned feed.
	OpenFeed(ctx context.Context, principalUID string) (*Feed, error)
}

// ServiceImplementation implements the booking Service interface.
type ServiceImplementation struct {
	repo     Repository
	registry provider.Service
	notifier notification.Notifier
	logger   *zap.Logger
}

// NewService creates a new booking service. notifier may be nil.
func NewService(repo Repository, registry provider.Service, notifier notification.Notifier, logger *zap.Logger) Service {
	return &ServiceImplementation{
		repo:     repo,
		registry: registry,
		notifier: notifier,
		logger:   logger.Named("BookingService"),
	}
}

func (s *ServiceImplementation) Create(ctx context.Context, principal *identity.Principal, req CreateBookingRequest) (*Booking, error) {
	req.IssueDescription = strings.TrimSpace(req.IssueDescription)
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	if details := common.RequireNonBlank(map[string]string{
		"issue_description": req.IssueDescription,
		"contact_number":    req.ContactNumber,
	}); details != nil {
		return nil, common.NewValidationAPIError(details)
	}

	profile, err := s.registry.GetByID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ProviderID:       profile.ID,
		ProviderName:     profile.Name,
		UserID:           principal.UID,
		UserName:         principal.Name(),
		ServiceDate:      req.ServiceDate,
		PreferredTime:    req.PreferredTime,
		IssueDescription: req.IssueDescription,
		ContactNumber:    req.ContactNumber,
		Status:           StatusPending,
		CreatedAt:        time.Now(),
	}

	id, err := s.repo.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	b.ID = id

	if s.notifier != nil {
		s.notifier.Notify(ctx, profile.UserID, notification.TypeBookingCreated, b.ID,
			fmt.Sprintf("New booking from %s for %s at %s.", b.UserName, b.ServiceDate, b.PreferredTime))
	}

	s.logger.Info("Booking created",
		zap.String("bookingID", b.ID),
		zap.String("providerID", b.ProviderID),
		zap.String("uid", b.UserID),
	)
	return b, nil
}

func (s *ServiceImplementation) ListForPrincipal(ctx context.Context, principalUID string) ([]Booking, string, error) {
	role, err := s.resolveRole(ctx, principalUID)
	if err != nil {
		return nil, "", err
	}
	bookings, err := s.repo.QueryByRole(ctx, role)
	if err != nil {
		return nil, "", err
	}
	return bookings, role.Kind(), nil
}

func (s *ServiceImplementation) Transition(ctx context.Context, principalUID, bookingID string, next Status) (*Booking, error) {
	if !next.Valid() {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown booking status %q.", next))
	}

	profile, err := s.registry.Resolve(ctx, principalUID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, common.ErrForbidden.WithDetails("Only providers can change a booking's status.")
	}

	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != profile.ID {
		return nil, common.ErrForbidden.WithDetails("This booking is addressed to a different provider.")
	}
	if !b.Status.CanAdvanceTo(next) {
		return nil, common.ErrConflict.WithDetails(
			fmt.Sprintf("A booking cannot move from %q to %q.", b.Status, next))
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, next); err != nil {
		return nil, err
	}
	b.Status = next

	if s.notifier != nil {
		eventType := notification.TypeBookingAccepted
		verb := "accepted"
		if next == StatusCompleted {
			eventType = notification.TypeBookingCompleted
			verb = "completed"
		}
		s.notifier.Notify(ctx, b.UserID, eventType, b.ID,
			fmt.Sprintf("Your booking with %s was %s.", b.ProviderName, verb))
	}

	s.logger.Info("Booking transitioned",
		zap.String("bookingID", b.ID),
		zap.String("status", string(next)),
		zap.String("providerID", profile.ID),
	)
	return b, nil
}

func (s *ServiceImplementation) OpenFeed(ctx context.Context, principalUID string) (*Feed, error) {
	f := newFeed(ctx, principalUID, s.repo, s.logger)

	registrySub, err := s.registry.Watch(ctx, principalUID, f.onRegistryChange)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		registrySub.Cancel()
		return f, nil
	}
	f.registrySub = registrySub
	f.mu.Unlock()
	return f, nil
}

func (s *ServiceImplementation) resolveRole(ctx context.Context, principalUID string) (Role, error) {
	profile, err := s.registry.Resolve(ctx, principalUID)
	if err != nil {
		return Role{}, err
	}
	if profile != nil {
		return ProviderRole(profile.ID), nil
	}
	return CustomerRole(principalUID), nil
}
