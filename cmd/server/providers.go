// File: cmd/server/providers.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickfix_backend/internal/config"
	"quickfix_backend/internal/jobs"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/platform/database"
	platformES "quickfix_backend/internal/platform/elasticsearch"
	"quickfix_backend/internal/provider"
	"quickfix_backend/internal/store"
	"quickfix_backend/internal/user"

	firebase "firebase.google.com/go/v4"
)

// provideDatabase opens the relational database and migrates the locally
// owned tables. The document store owns providers and bookings; only the
// principal mirror and the notification log live here.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(&user.User{}, &notification.Notification{}); err != nil {
		database.CloseGORMDB(db)
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	cleanup := func() {
		logger.Info("Closing database connection...")
		database.CloseGORMDB(db)
	}
	return db, cleanup, nil
}

// provideStore selects the booking store backend.
func provideStore(cfg *config.Config, app *firebase.App, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("STORE_BACKEND=memory: bookings and providers are not persisted across restarts.")
		return store.NewMemoryStore(), func() {}, nil
	}

	client, err := app.Firestore(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}
	cleanup := func() {
		logger.Info("Closing Firestore client...")
		if err := client.Close(); err != nil {
			logger.Warn("Error closing Firestore client", zap.Error(err))
		}
	}
	return store.NewFirestoreStore(client, logger), cleanup, nil
}

// provideReindexJob wires the cron reindex job only when Elasticsearch is
// configured; a nil job is skipped by the server.
func provideReindexJob(providerService provider.Service, es *platformES.ESClientWrapper, logger *zap.Logger, cfg *config.Config) *jobs.ProviderReindexJob {
	if es == nil {
		return nil
	}
	return jobs.NewProviderReindexJob(providerService, logger, cfg)
}
