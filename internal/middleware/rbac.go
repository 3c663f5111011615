package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edusync/school-api/internal/models"
	appErrors "github.com/edusync/school-api/pkg/errors"
	"github.com/edusync/school-api/pkg/response"
)

// RequireRoles blocks requests whose authenticated role is not listed.
// Fine-grained checks (school scope, student ownership) live in the
// service-layer policy; this gate only rejects the obviously wrong role
// before a handler runs.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
