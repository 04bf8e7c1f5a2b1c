package fetch

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/shared/server/respond"
)

// Handler serves remote images through the API origin.
type Handler struct {
	Fetcher *Fetcher
}

// NewHandler constructs a Handler.
func NewHandler(f *Fetcher) *Handler {
	return &Handler{Fetcher: f}
}

// RegisterRoutes attaches the proxy route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/proxy-image", h.proxy)
}

func (h *Handler) proxy(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "url is required", nil)
		return
	}
	data, contentType, err := h.Fetcher.Fetch(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsafeURL):
			respond.Error(c, http.StatusBadRequest, "validation_error", "url not allowed", nil)
		case errors.Is(err, ErrNotImage):
			respond.Error(c, http.StatusUnsupportedMediaType, "not_image", "remote resource is not an image", nil)
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "remote image exceeds size limit", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "upstream_error", "failed to fetch image", err.Error())
		}
		return
	}
	c.Header("Cache-Control", "public, max-age=600")
	c.Data(http.StatusOK, contentType, data)
}
