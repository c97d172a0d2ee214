package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email, X-User-Role).
// The gateway in front of the sequencer validates credentials; with
// AUTH_MODE=gateway the headers are trusted unconditionally, so the service
// must not be reachable except through it.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for gateway headers
		userIDStr := c.GetHeader("X-User-ID")
		userEmail := c.GetHeader("X-User-Email")
		userRole := c.GetHeader("X-User-Role")

		if userIDStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		setCaller(c, userIDStr)
		c.Set("user_email", userEmail)
		c.Set("user_role", userRole)

		c.Next()
	}
}

// callerKey holds the caller ID; the logger reads the same key
const callerKey = "user_id"

func setCaller(c *gin.Context, id string) {
	c.Set(callerKey, id)
}

// UserID returns the caller ID set by GatewayAuth or NoAuth
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(callerKey)
	return id, id != ""
}
