package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
	"github.com/noah-isme/lab-scheduler-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of
// roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, permitted := allowed[claims.Role]; !permitted {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
