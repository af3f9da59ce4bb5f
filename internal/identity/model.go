// File: internal/identity/model.go
package identity

// Principal is the authenticated identity issued by the external identity
// provider. It is read-only to this application; Firebase owns its lifecycle.
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Name returns the best human-readable label for the principal: the display
// name when set, otherwise the email. Used when snapshotting userName onto
// bookings.
func (p *Principal) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// Session is the result of a register or authenticate call against the
// identity provider.
type Session struct {
	Principal    Principal `json:"principal"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
}

// --- DTOs for auth endpoints ---

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	DisplayName string `json:"display_name,omitempty" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
