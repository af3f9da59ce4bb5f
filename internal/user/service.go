// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"time"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/identity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for user mirror business logic.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	// GetOrCreateFromPrincipal syncs the verified principal into the local
	// mirror, creating the row on first sight and refreshing profile fields
	// and last-login on subsequent requests.
	GetOrCreateFromPrincipal(ctx context.Context, principal *identity.Principal) (usr *User, wasCreated bool, err error)
}

// ServiceImplementation implements the user Service interface.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger.Named("UserService")}
}

func (s *ServiceImplementation) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	return s.repo.FindByFirebaseUID(ctx, firebaseUID)
}

func (s *ServiceImplementation) GetOrCreateFromPrincipal(ctx context.Context, principal *identity.Principal) (*User, bool, error) {
	existing, err := s.repo.FindByFirebaseUID(ctx, principal.UID)
	if err == nil {
		s.refreshFromPrincipal(ctx, existing, principal)
		return existing, false, nil
	}

	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != common.ErrNotFound.StatusCode {
		return nil, false, err
	}

	now := time.Now()
	created := &User{
		FirebaseUID:     principal.UID,
		IsEmailVerified: principal.EmailVerified,
		LastLoginAt:     &now,
	}
	if principal.Email != "" {
		email := principal.Email
		created.Email = &email
	}
	if principal.DisplayName != "" {
		name := principal.DisplayName
		created.DisplayName = &name
	}

	if err := s.repo.Create(ctx, created); err != nil {
		// A concurrent request may have created the row between our lookup
		// and the insert; fall back to reading it.
		if conflict, ok := common.IsAPIError(err); ok && conflict.StatusCode == common.ErrConflict.StatusCode {
			raced, rerr := s.repo.FindByFirebaseUID(ctx, principal.UID)
			if rerr == nil {
				return raced, false, nil
			}
		}
		s.logger.Error("Failed to create user mirror record", zap.String("uid", principal.UID), zap.Error(err))
		return nil, false, err
	}

	s.logger.Info("Mirrored new principal", zap.String("uid", principal.UID), zap.String("userID", created.ID.String()))
	return created, true, nil
}

// refreshFromPrincipal updates mutable profile fields and last-login.
// Failures are logged and swallowed: a stale mirror must not fail the request.
func (s *ServiceImplementation) refreshFromPrincipal(ctx context.Context, usr *User, principal *identity.Principal) {
	changed := false
	if principal.Email != "" && (usr.Email == nil || *usr.Email != principal.Email) {
		email := principal.Email
		usr.Email = &email
		changed = true
	}
	if principal.DisplayName != "" && (usr.DisplayName == nil || *usr.DisplayName != principal.DisplayName) {
		name := principal.DisplayName
		usr.DisplayName = &name
		changed = true
	}
	if usr.IsEmailVerified != principal.EmailVerified {
		usr.IsEmailVerified = principal.EmailVerified
		changed = true
	}

	now := time.Now()
	if usr.LastLoginAt == nil || now.Sub(*usr.LastLoginAt) > time.Minute {
		usr.LastLoginAt = &now
		changed = true
	}

	if changed {
		if err := s.repo.Update(ctx, usr); err != nil {
			s.logger.Warn("Failed to refresh user mirror record", zap.String("uid", principal.UID), zap.Error(err))
		}
	}
}
