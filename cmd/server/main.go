// File: cmd/server/main.go
package main

import (
	"context"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quickfix_backend/internal/config"
	"quickfix_backend/internal/identity"
	platformES "quickfix_backend/internal/platform/elasticsearch"
	"quickfix_backend/internal/platform/logger"
	"quickfix_backend/internal/provider"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "reindex-providers" {
		runProviderReindex()
		return
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// runProviderReindex rebuilds the Elasticsearch provider directory index
// from the booking store and exits. Useful after restoring the store or
// changing the index mapping.
func runProviderReindex() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for reindex: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for reindex: %v", err)
	}

	firebaseApp, err := identity.NewFirebaseApp(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize Firebase app for reindex", zap.Error(err))
	}
	docStore, storeCleanup, err := provideStore(cfg, firebaseApp, appLogger)
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize booking store for reindex", zap.Error(err))
	}
	defer storeCleanup()

	esClient, err := platformES.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize Elasticsearch client for reindex", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("FATAL: ELASTICSEARCH_URL must be set for reindex-providers.")
	}

	providerService := provider.NewService(provider.NewStoreRepository(docStore, cfg), esClient, appLogger)
	indexed, err := providerService.ReindexAll(context.Background())
	if err != nil {
		appLogger.Fatal("FATAL: Provider reindex failed", zap.Error(err))
	}
	appLogger.Info("Provider reindex completed successfully.", zap.Int("providers_indexed", indexed))
}
