package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/internal/service"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator parses access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// RoleResolver reports the role currently stored for a user. An empty role keeps the token's claim.
// A TokenValidator that also implements it has the claim replaced on every request.
type RoleResolver interface {
	CurrentRole(ctx context.Context, userID string) (models.UserRole, error)
}

// JWT protects routes by requiring a valid access token.
// The client address is attached to the request context for audit entries.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or invalid authorization header"))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if resolver, ok := validator.(RoleResolver); ok {
			role, err := resolver.CurrentRole(c.Request.Context(), claims.UserID)
			if err != nil {
				response.Abort(c, err)
				return
			}
			if role != "" {
				claims.UserRole = role
			}
		}

		c.Set(ContextUserKey, claims)
		c.Request = c.Request.WithContext(service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}))
		c.Next()
	}
}

// ClaimsFrom returns the claims set by JWT, if any.
func ClaimsFrom(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
