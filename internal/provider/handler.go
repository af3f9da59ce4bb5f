// File: internal/provider/handler.go
package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/middleware"
)

// Handler exposes the provider directory and registration endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new provider handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("ProviderHandler")}
}

// RegisterRoutes sets up the routes for provider operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	providers := router.Group("/providers")
	{
		providers.GET("", h.searchProviders)
		providers.GET("/:id", h.getProvider)

		authed := providers.Group("")
		authed.Use(authMW)
		{
			authed.POST("", h.registerProvider)
			authed.GET("/me", h.getOwnProfile)
		}
	}
}

// searchProviders handles GET /providers
func (h *Handler) searchProviders(c *gin.Context) {
	var query SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid query parameters: "+err.Error()))
		return
	}

	profiles, pagination, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Providers retrieved successfully", profiles, pagination)
}

// getProvider handles GET /providers/:id
func (h *Handler) getProvider(c *gin.Context) {
	profile, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider retrieved successfully", profile)
}

// registerProvider handles POST /providers
func (h *Handler) registerProvider(c *gin.Context) {
	principal := middleware.GetPrincipalFromContext(c)
	if principal == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req RegisterProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	profile, err := h.service.Register(c.Request.Context(), principal, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Provider profile registered successfully", profile)
}

// getOwnProfile handles GET /providers/me
func (h *Handler) getOwnProfile(c *gin.Context) {
	principal := middleware.GetPrincipalFromContext(c)
	if principal == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	profile, err := h.service.Resolve(c.Request.Context(), principal.UID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusOK, common.SuccessResponse{Status: "success", Message: "No provider profile registered", Data: gin.H{"registered": false}})
		return
	}
	common.RespondOK(c, "Provider profile retrieved successfully", gin.H{"registered": true, "profile": profile})
}
