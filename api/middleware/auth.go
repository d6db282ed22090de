package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joblens/harvester/models"
)

// Auth returns API-key authentication middleware. Keys may arrive as
// `X-API-Key: <key>` or `Authorization: Bearer <key>`. With no keys
// configured the middleware is a no-op (open access).
func Auth(apiKeys []string) gin.HandlerFunc {
	valid := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := requestAPIKey(c)
		switch {
		case key == "":
			abortUnauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
		case !keyMatches(key, valid):
			abortUnauthorized(c, "invalid API key")
		default:
			c.Set("api_key", key)
			c.Next()
		}
	}
}

// keyMatches compares in constant time so response timing does not leak
// key prefixes.
func keyMatches(key string, valid []string) bool {
	for _, k := range valid {
		if len(k) == len(key) && subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// requestAPIKey tries X-API-Key first, then Authorization: Bearer.
func requestAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScrapeResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
