package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const credentialKey = "api_credential"

// ExtractCredential pulls the caller's API key from the Authorization
// header (Bearer scheme) or the X-API-Key header and stores it on the
// request context. Absence is not an error here; the security gate
// decides what an empty credential may do.
func ExtractCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := ""
		if auth := c.GetHeader("Authorization"); auth != "" {
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				cred = strings.TrimSpace(token)
			}
		}
		if cred == "" {
			cred = strings.TrimSpace(c.GetHeader("X-API-Key"))
		}
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// Credential returns the API key extracted for this request, or "".
func Credential(c *gin.Context) string {
	return c.GetString(credentialKey)
}
