package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const flatErrorsKey = "flatErrors"

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// FlatErrors marks a route whose clients read errors as {"error": message, "details": ...}.
func FlatErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(flatErrorsKey, true)
		c.Next()
	}
}

// Fail writes an error in the shape the current route uses.
func Fail(c *gin.Context, status int, code, message string, details interface{}) {
	if c.GetBool(flatErrorsKey) {
		PipelineError(c, status, code, message, details)
		return
	}
	Error(c, status, code, message, details)
}
