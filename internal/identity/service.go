// File: internal/identity/service.go
// Package identity wraps the external identity provider (Firebase Auth). The
// rest of the application consumes the Service interface and never touches
// Firebase types directly, which keeps the provider swappable in tests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/config"
)

// Service is the identity provider contract consumed by the application.
type Service interface {
	// VerifyIDToken validates a bearer ID token and resolves its principal.
	VerifyIDToken(ctx context.Context, idToken string) (*Principal, error)
	// Register creates a new principal with email/password credentials.
	Register(ctx context.Context, email, password, displayName string) (*Session, error)
	// Authenticate exchanges email/password credentials for a session.
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	// EndSession revokes all refresh tokens for the principal.
	EndSession(ctx context.Context, uid string) error
}

// FirebaseService implements Service on the Firebase Admin SDK plus the
// Identity Toolkit REST API (the Admin SDK cannot verify passwords).
type FirebaseService struct {
	authClient *firebaseauth.Client
	toolkit    *identitytoolkit.RelyingpartyService
	logger     *zap.Logger
}

// NewFirebaseService builds the identity service from an initialized Firebase app.
func NewFirebaseService(app *firebase.App, cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	opts := []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountKeyPath)}
	if cfg.FirebaseWebAPIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.FirebaseWebAPIKey))
	}
	gip, err := identitytoolkit.NewService(context.Background(), opts...)
	if err != nil {
		logger.Error("Failed to initialize Identity Toolkit client", zap.Error(err))
		return nil, fmt.Errorf("error initializing Identity Toolkit client: %w", err)
	}

	return &FirebaseService{
		authClient: authClient,
		toolkit:    gip.Relyingparty,
		logger:     logger.Named("IdentityService"),
	}, nil
}

// VerifyIDToken verifies a Firebase ID token and returns the principal it
// identifies.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*Principal, error) {
	if idToken == "" {
		return nil, common.ErrUnauthorized.WithDetails("ID token must not be empty.")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired session token.")
	}

	principal := principalFromClaims(token)
	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", principal.UID))
	return principal, nil
}

// Register creates the account with the identity provider. The principal's
// credentials never touch this application's storage.
func (s *FirebaseService) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}
	resp, err := s.toolkit.SignupNewUser(req).Context(ctx).Do()
	if err != nil {
		return nil, s.mapToolkitError("register", err)
	}

	return &Session{
		Principal: Principal{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName},
		IDToken:   resp.IdToken,
		ExpiresIn: resp.ExpiresIn,
	}, nil
}

// Authenticate exchanges email/password for an ID token via the Identity
// Toolkit verifyPassword endpoint.
func (s *FirebaseService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := s.toolkit.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		return nil, s.mapToolkitError("authenticate", err)
	}

	return &Session{
		Principal:    Principal{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// EndSession revokes all refresh tokens for a given principal. Outstanding ID
// tokens remain valid until their natural expiry; verification rejects them
// afterwards.
func (s *FirebaseService) EndSession(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return common.ErrInternalServer.WithDetails("Failed to end the session.")
	}
	s.logger.Info("Revoked refresh tokens for principal", zap.String("uid", uid))
	return nil
}

func principalFromClaims(token *firebaseauth.Token) *Principal {
	p := &Principal{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		p.DisplayName = name
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		p.EmailVerified = verified
	}
	return p
}

// mapToolkitError translates Identity Toolkit error codes into the API error
// taxonomy. Credential failures surface inline on the relevant form.
func (s *FirebaseService) mapToolkitError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		switch {
		case strings.Contains(msg, "EMAIL_EXISTS"):
			return common.ErrConflict.WithDetails("An account with this email already exists.")
		case strings.Contains(msg, "EMAIL_NOT_FOUND"),
			strings.Contains(msg, "INVALID_PASSWORD"),
			strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS"):
			return common.ErrUnauthorized.WithDetails("Invalid email or password.")
		case strings.Contains(msg, "USER_DISABLED"):
			return common.ErrForbidden.WithDetails("This account has been disabled.")
		case strings.Contains(msg, "WEAK_PASSWORD"):
			return common.ErrBadRequest.WithDetails("Password should be at least 6 characters.")
		}
	}
	s.logger.Error("Identity provider call failed", zap.String("op", op), zap.Error(err))
	return common.ErrInternalServer.WithDetails("The identity provider could not complete the request.")
}
