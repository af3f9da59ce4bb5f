// File: internal/middleware/auth.go
package middleware

import (
	"quickfix_backend/internal/common"
	"quickfix_backend/internal/identity"
	"quickfix_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware that verifies the Firebase ID token
// on each request, syncs the principal into the local user mirror, and places
// both in the request context.
func AuthMiddleware(identityService identity.Service, userService user.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header must be 'Bearer <token>'."))
			return
		}

		principal, err := identityService.VerifyIDToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Warn("Token verification failed", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}

		mirrored, _, err := userService.GetOrCreateFromPrincipal(c.Request.Context(), principal)
		if err != nil {
			logger.Error("Failed to sync principal into user mirror", zap.String("uid", principal.UID), zap.Error(err))
			common.RespondWithError(c, common.ErrInternalServer.WithDetails("Failed to resolve the authenticated user."))
			return
		}

		c.Set(common.UserIDKey, mirrored.ID)
		c.Set(common.UserEmailKey, principal.Email)
		c.Set(common.FirebaseUIDKey, principal.UID)
		c.Set(common.PrincipalKey, principal)

		logger.Debug("User authenticated successfully",
			zap.String("uid", principal.UID),
			zap.String("userID", mirrored.ID.String()),
		)

		c.Next()
	}
}

// GetPrincipalFromContext retrieves the authenticated principal from the Gin
// context. Returns nil when the request is unauthenticated.
func GetPrincipalFromContext(c *gin.Context) *identity.Principal {
	val, exists := c.Get(common.PrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := val.(*identity.Principal)
	if !ok {
		return nil
	}
	return principal
}
