package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openblog/microblog/internal/auth"
)

// Context keys. UserIDKey and UsernameKey match the request logger's field
// names so the actor shows up in access logs.
const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// LastSeenToucher records user activity, best-effort.
type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, userID string)
}

// AuthMiddleware validates JWT bearer tokens against the in-process manager.
type AuthMiddleware struct {
	tokens  *auth.Manager
	toucher LastSeenToucher
}

// NewAuthMiddleware creates a new auth middleware. toucher may be nil.
func NewAuthMiddleware(tokens *auth.Manager, toucher LastSeenToucher) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:  tokens,
		toucher: toucher,
	}
}

// RequireAuth returns a Gin middleware that validates JWT access tokens.
// On success the actor is stored in the gin context and the user's
// last-seen timestamp is touched.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		if claims.Type != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "not an access token",
			})
			return
		}

		// Set actor info in context
		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)

		if m.toucher != nil {
			m.toucher.TouchLastSeen(c.Request.Context(), claims.UserID)
		}

		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}
