package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userId"

// ClaimedIdentity stores the caller-claimed user id (X-User-Id header or userId query).
// The id is not verified here; sign-in is handled by the external identity provider.
func ClaimedIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			userID = strings.TrimSpace(c.Query("userId"))
		}
		if userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// SetUserID records a user id discovered later in the request (form or JSON body).
func SetUserID(c *gin.Context, userID string) {
	if c == nil || strings.TrimSpace(userID) == "" {
		return
	}
	c.Set(userIDKey, strings.TrimSpace(userID))
}

// UserIDFromContext fetches the user ID set by ClaimedIdentity or SetUserID.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
