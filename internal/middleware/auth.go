package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/socionet/backend/internal/auth"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
)

// Auth verifies the session token from the cookie or an Authorization
// Bearer header (cookie wins) and stores the claims on the context.
// Accounts not yet approved are rejected with 403.
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			response.Unauthorized(c, "Missing token")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}
		if claims.Status != "" && claims.Status != models.StatusApproved {
			response.Forbidden(c, "Account not approved")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(auth.CookieName); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// UserID returns the authenticated user's id.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// UserRole returns the authenticated user's role, or "" when unauthenticated.
func UserRole(c *gin.Context) models.Role {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return ""
	}
	return claims.Role
}
