// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"quickfix_backend/internal/auth"
	"quickfix_backend/internal/booking"
	"quickfix_backend/internal/config"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/jobs"
	"quickfix_backend/internal/middleware"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/provider"
	"quickfix_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	authHandler         *auth.Handler
	providerHandler     *provider.Handler
	bookingHandler      *booking.Handler
	notificationHandler *notification.Handler

	// Jobs
	providerReindexJob *jobs.ProviderReindexJob

	authMW gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	authHandler *auth.Handler,
	providerHandler *provider.Handler,
	bookingHandler *booking.Handler,
	notificationHandler *notification.Handler,
	providerReindexJob *jobs.ProviderReindexJob,
	identityService identity.Service,
	userService user.Service,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(identityService, userService, logger.Named("AuthMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "QuickFix API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1, authMW)
	providerHandler.RegisterRoutes(v1, authMW)
	bookingHandler.RegisterRoutes(v1, authMW)
	notificationHandler.RegisterRoutes(v1, authMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the dashboard feed holds its response open
		// indefinitely and a server-wide write deadline would sever it.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer:          httpServer,
		router:              router,
		cfg:                 cfg,
		logger:              logger,
		authHandler:         authHandler,
		providerHandler:     providerHandler,
		bookingHandler:      bookingHandler,
		notificationHandler: notificationHandler,
		providerReindexJob:  providerReindexJob,
		authMW:              authMW,
	}, nil
}

// Router exposes the underlying Gin engine, primarily for integration tests
// that drive the full middleware and routing stack via httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	if s.providerReindexJob != nil {
		if err := s.providerReindexJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start provider reindex job", zap.Error(err))
		}
	} else {
		s.logger.Info("Provider reindex job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.providerReindexJob != nil {
		s.providerReindexJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
