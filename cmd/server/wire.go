// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"quickfix_backend/internal/app"
	"quickfix_backend/internal/auth"
	"quickfix_backend/internal/booking"
	"quickfix_backend/internal/config"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/platform/elasticsearch"
	"quickfix_backend/internal/platform/logger"
	"quickfix_backend/internal/provider"
	"quickfix_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,
		elasticsearch.NewClient,

		// Identity
		identity.NewFirebaseApp,
		identity.NewFirebaseService,
		wire.Bind(new(identity.Service), new(*identity.FirebaseService)),

		// Booking store
		provideStore,

		// User mirror
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),

		// Notifications
		notification.NewGORMRepository,
		notification.NewService,
		wire.Bind(new(notification.Notifier), new(notification.Service)),

		// Provider registry and directory
		provider.NewStoreRepository,
		provider.NewService,
		provider.NewHandler,

		// Bookings
		booking.NewStoreRepository,
		booking.NewService,
		booking.NewHandler,

		// Remaining handlers and jobs
		auth.NewHandler,
		notification.NewHandler,
		provideReindexJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
