package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderWebhookSecret carries the shared secret configured at the provider.
const HeaderWebhookSecret = "X-Webhook-Secret"

// SecretAuthMiddleware validates the shared-secret header. It authenticates
// the provider, not the person who wrote the form or email. An empty secret
// disables the check.
func SecretAuthMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		got := c.GetHeader(HeaderWebhookSecret)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing webhook secret"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
