package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/response"
)

// RequireRoles rejects tokens whose role is not listed. Services repeat the check against the stored record.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.UserRole]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}

// RequirePrivileged admits the governing roles.
func RequirePrivileged() gin.HandlerFunc {
	return RequireRoles(models.PrivilegedRoles...)
}
