// File: internal/auth/handler.go
package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/middleware"
	"quickfix_backend/internal/user"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	identityService identity.Service
	userService     user.Service
	logger          *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(identityService identity.Service, userService user.Service, logger *zap.Logger) *Handler {
	return &Handler{
		identityService: identityService,
		userService:     userService,
		logger:          logger.Named("AuthHandler"),
	}
}

// RegisterRoutes sets up the routes for authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)

		authed := authGroup.Group("")
		authed.Use(authMW)
		{
			authed.POST("/logout", h.logout)
			authed.GET("/me", h.me)
		}
	}
}

// register handles POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var req identity.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	session, err := h.identityService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	// Mirror the principal eagerly so the first authenticated request does
	// not pay the insert.
	if _, _, err := h.userService.GetOrCreateFromPrincipal(c.Request.Context(), &session.Principal); err != nil {
		h.logger.Warn("Failed to mirror newly registered principal",
			zap.String("uid", session.Principal.UID), zap.Error(err))
	}

	common.RespondCreated(c, "Account created successfully", session)
}

// login handles POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var req identity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	session, err := h.identityService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Logged in successfully", session)
}

// logout handles POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	if err := h.identityService.EndSession(c.Request.Context(), uid); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Logged out successfully", nil)
}

// me handles GET /auth/me
func (h *Handler) me(c *gin.Context) {
	principal := middleware.GetPrincipalFromContext(c)
	if principal == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	mirrored, err := h.userService.GetByFirebaseUID(c.Request.Context(), principal.UID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully", gin.H{
		"principal": principal,
		"user":      user.ToUserResponse(mirrored),
	})
}
