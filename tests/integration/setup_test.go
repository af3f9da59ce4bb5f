package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickfix_backend/internal/app"
	"quickfix_backend/internal/auth"
	"quickfix_backend/internal/booking"
	"quickfix_backend/internal/common"
	"quickfix_backend/internal/config"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/platform/database"
	"quickfix_backend/internal/provider"
	"quickfix_backend/internal/store"
	"quickfix_backend/internal/user"
)

// fakeIdentityService stands in for Firebase in integration tests: tokens are
// opaque strings it minted itself, and verification is a map lookup.
type fakeIdentityService struct {
	mu         sync.Mutex
	byToken    map[string]*identity.Principal
	byEmail    map[string]string // email -> token
	passwords  map[string]string // email -> password
}

func newFakeIdentityService() *fakeIdentityService {
	return &fakeIdentityService{
		byToken:   make(map[string]*identity.Principal),
		byEmail:   make(map[string]string),
		passwords: make(map[string]string),
	}
}

// MintToken registers a principal and returns a bearer token that verifies to it.
func (f *fakeIdentityService) MintToken(uid, email, displayName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "test-token-" + uid
	f.byToken[token] = &identity.Principal{UID: uid, Email: email, DisplayName: displayName, EmailVerified: true}
	f.byEmail[email] = token
	return token
}

func (f *fakeIdentityService) VerifyIDToken(_ context.Context, idToken string) (*identity.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	principal, ok := f.byToken[idToken]
	if !ok {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired session token.")
	}
	return principal, nil
}

func (f *fakeIdentityService) Register(_ context.Context, email, password, displayName string) (*identity.Session, error) {
	f.mu.Lock()
	if _, exists := f.byEmail[email]; exists {
		f.mu.Unlock()
		return nil, common.ErrConflict.WithDetails("An account with this email already exists.")
	}
	f.mu.Unlock()

	uid := "uid-" + uuid.NewString()[:8]
	token := f.MintToken(uid, email, displayName)
	f.mu.Lock()
	f.passwords[email] = password
	principal := *f.byToken[token]
	f.mu.Unlock()
	return &identity.Session{Principal: principal, IDToken: token}, nil
}

func (f *fakeIdentityService) Authenticate(_ context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.byEmail[email]
	if !ok || f.passwords[email] != password {
		return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}
	return &identity.Session{Principal: *f.byToken[token], IDToken: token}, nil
}

func (f *fakeIdentityService) EndSession(_ context.Context, _ string) error {
	return nil
}

// setupTestServer builds the full HTTP stack on the embedded store, an
// in-memory sqlite database, and the fake identity service.
func setupTestServer(t *testing.T) (*gin.Engine, *fakeIdentityService) {
	t.Helper()

	cfg := &config.Config{
		GinMode:             gin.TestMode,
		ServerHost:          "127.0.0.1",
		ServerPort:          "0",
		LogLevel:            "silent",
		DBDriver:            "sqlite",
		DBName:              fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		DBMaxIdleConns:      2,
		DBMaxOpenConns:      2,
		StoreBackend:        "memory",
		ProvidersCollection: "providers",
		BookingsCollection:  "bookings",
	}
	log := zap.NewNop()

	db, err := database.NewGORM(cfg)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &notification.Notification{}))
	t.Cleanup(func() { database.CloseGORMDB(db) })

	mem := store.NewMemoryStore()
	ids := newFakeIdentityService()

	userService := user.NewService(user.NewGORMRepository(db), log)
	notificationService := notification.NewService(notification.NewGORMRepository(db), userService, log)
	providerService := provider.NewService(provider.NewStoreRepository(mem, cfg), nil, log)
	bookingService := booking.NewService(booking.NewStoreRepository(mem, cfg), providerService, notificationService, log)

	server, err := app.NewServer(
		cfg,
		log,
		auth.NewHandler(ids, userService, log),
		provider.NewHandler(providerService, log),
		booking.NewHandler(bookingService, log),
		notification.NewHandler(notificationService, log),
		nil,
		ids,
		userService,
	)
	require.NoError(t, err)
	return server.Router(), ids
}
