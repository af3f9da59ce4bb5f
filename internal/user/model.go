// File: internal/user/model.go
package user

import (
	"time"

	"quickfix_backend/internal/common"

	"github.com/google/uuid"
)

// User is the local mirror of an authenticated principal. The identity
// provider owns credentials and profile; this row exists so bookings and
// notifications can reference principals relationally and so last-login is
// tracked server-side.
type User struct {
	common.BaseModel             // Embeds ID, CreatedAt, UpdatedAt
	FirebaseUID      string      `gorm:"type:varchar(128);not null;uniqueIndex"`
	Email            *string     `gorm:"type:varchar(255);uniqueIndex"`
	DisplayName      *string     `gorm:"type:varchar(150)"`
	IsEmailVerified  bool        `gorm:"not null;default:false"`
	LastLoginAt      *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	FirebaseUID     string     `json:"firebase_uid"`
	Email           *string    `json:"email,omitempty"`
	DisplayName     *string    `json:"display_name,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		FirebaseUID:     u.FirebaseUID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		LastLoginAt:     u.LastLoginAt,
	}
}
