package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/shared/server/respond"
	"visioncloud-backend/internal/shared/telemetry"
)

// Recovery turns a panic into a 500 in the route's error shape.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if userID := UserIDFromContext(c); userID != "" {
				fields["user_id"] = userID
			}
			if artworkID := c.GetString("artworkId"); artworkID != "" {
				fields["artwork_id"] = artworkID
			}
			telemetry.Error("panic", fields)
			respond.Fail(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
