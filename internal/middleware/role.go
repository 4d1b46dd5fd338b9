package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/socionet/backend/internal/auth"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
// It must run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthorized(c, "Missing token")
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Forbidden(c, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
