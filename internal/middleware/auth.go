package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// Auth returns middleware that validates the X-API-Key header against configured keys.
// Trigger sources (document-write hooks, location reporters, the app backend) share these
// keys. With no keys configured every request is rejected.
func Auth(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey == "" {
			common.HandleError(c, common.NewUnauthorizedError("missing X-API-Key header"))
			c.Abort()
			return
		}

		if !isValidKey(apiKey, validKeys) {
			common.Error(c, http.StatusUnauthorized, "invalid API key")
			c.Abort()
			return
		}

		c.Next()
	}
}

// isValidKey checks the provided key against the list of valid keys using constant-time comparison.
func isValidKey(key string, validKeys []string) bool {
	found := false
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			found = true
		}
	}
	return found
}
