package respond

import (
	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, code, message)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FlatErrorResponse is the body of analysis pipeline failures: a readable message plus the cause.
type FlatErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// PipelineError answers the analysis routes with {"error": message, "details": details}.
func PipelineError(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, code, message)
	c.AbortWithStatusJSON(status, FlatErrorResponse{Error: message, Details: details})
}

func logError(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if artworkID := c.GetString("artworkId"); artworkID != "" {
		fields["artwork_id"] = artworkID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}
}
