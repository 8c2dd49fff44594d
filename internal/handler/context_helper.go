package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jnv-alumni-api/internal/middleware"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) (*models.JWTClaims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// queryInt reads a positive integer query parameter, returning 0 when absent.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid query parameter"), map[string]string{key: "must be a positive integer"})
	}
	return value, nil
}
