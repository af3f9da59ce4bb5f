// File: internal/identity/firebase.go
package identity

import (
	"context"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"quickfix_backend/internal/config"
)

// NewFirebaseApp initializes the Firebase Admin SDK application from the
// configured service account credentials. The app is shared by the auth
// client and the Firestore-backed booking store.
func NewFirebaseApp(cfg *config.Config, logger *zap.Logger) (*firebase.App, error) {
	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var app *firebase.App
	var err error
	if cfg.FirebaseProjectID != "" {
		conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
		app, err = firebase.NewApp(context.Background(), conf, opt)
	} else {
		// Let the SDK infer the project from the credentials.
		app, err = firebase.NewApp(context.Background(), nil, opt)
	}
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return app, nil
}
