// File: internal/notification/model.go
package notification

import (
	"time"

	"github.com/google/uuid"

	"quickfix_backend/internal/common"
)

// Notification event types.
const (
	TypeBookingCreated   = "booking_created"
	TypeBookingAccepted  = "booking_accepted"
	TypeBookingCompleted = "booking_completed"
)

// Notification is a persisted in-app notification for a mirrored user,
// written when a booking is created or advances through its lifecycle.
type Notification struct {
	common.BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Message   string    `gorm:"type:text;not null"`
	BookingID string    `gorm:"type:varchar(128);not null;index"`
	IsRead    bool      `gorm:"not null;default:false"`
}

// TableName specifies the table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}

// NotificationResponse is the API shape of a notification.
type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	BookingID string    `json:"booking_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ToNotificationResponse converts a Notification to its API shape.
func ToNotificationResponse(n *Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		BookingID: n.BookingID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
