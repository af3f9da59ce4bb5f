// File: internal/booking/handler.go
package booking

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/middleware"
)

// Handler exposes the booking endpoints, including the SSE dashboard feed.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new booking handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("BookingHandler")}
}

// RegisterRoutes sets up the routes for booking operations. All booking
// routes require authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	bookings := router.Group("/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", h.createBooking)
		bookings.GET("", h.listBookings)
		bookings.GET("/feed", h.streamFeed)
		bookings.PATCH("/:id/status", h.transitionBooking)
	}
}

// createBooking handles POST /bookings
func (h *Handler) createBooking(c *gin.Context) {
	principal := middleware.GetPrincipalFromContext(c)
	if principal == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	b, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Booking created successfully", b)
}

// listBookings handles GET /bookings
func (h *Handler) listBookings(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	bookings, role, err := h.service.ListForPrincipal(c.Request.Context(), uid)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Bookings retrieved successfully", gin.H{
		"role":     role,
		"bookings": bookings,
	})
}

// transitionBooking handles PATCH /bookings/:id/status
func (h *Handler) transitionBooking(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	b, err := h.service.Transition(c.Request.Context(), uid, c.Param("id"), req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Booking status updated successfully", b)
}

// feedHeartbeatInterval keeps intermediaries from closing an idle stream.
const feedHeartbeatInterval = 30 * time.Second

// streamFeed handles GET /bookings/feed as a server-sent event stream.
// Every event named "update" carries the full role-scoped dashboard snapshot.
func (h *Handler) streamFeed(c *gin.Context) {
	uid := common.GetFirebaseUIDFromContext(c)
	if uid == "" {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	feed, err := h.service.OpenFeed(c.Request.Context(), uid)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	defer feed.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(feedHeartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-feed.Events():
			if !ok {
				return false
			}
			c.SSEvent("update", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-clientGone:
			return false
		}
	})
}
