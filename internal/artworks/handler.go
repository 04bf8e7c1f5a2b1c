package artworks

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/fetch"
	"visioncloud-backend/internal/shared/server/middleware"
	"visioncloud-backend/internal/shared/server/respond"
	"visioncloud-backend/internal/vision"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches artwork routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/artworks", respond.FlatErrors(), h.upload)
	rg.POST("/artworks/import", respond.FlatErrors(), h.importImage)
	rg.GET("/artworks/history", h.history)
	rg.GET("/artworks/community", h.community)
	rg.GET("/artworks/:id", h.get)
	rg.GET("/artworks/:id/storybook", h.storybook)
	rg.GET("/artworks/:id/original", h.original)
	rg.PATCH("/artworks/:id/share", h.share)
	rg.DELETE("/artworks/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.PipelineError(c, http.StatusRequestEntityTooLarge, "too_large", "image exceeds upload limit", nil)
			return
		}
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "image is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "unable to read image", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "unable to read image", nil)
		return
	}

	genres, err := parseGenres(c.PostForm("genres"))
	if err != nil {
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "genres must be a JSON array", err.Error())
		return
	}
	middleware.SetUserID(c, c.PostForm("userId"))

	res, err := h.Svc.Process(c.Request.Context(), Upload{
		UserID:      middleware.UserIDFromContext(c),
		Title:       strings.TrimSpace(c.PostForm("title")),
		Genres:      genres,
		Image:       data,
		ContentType: contentTypeOf(fileHeader.Header.Get("Content-Type"), data),
	})
	if err != nil {
		writePipelineError(c, err, "Analysis failed")
		return
	}
	c.Set("artworkId", res.ID)
	respond.JSON(c, http.StatusCreated, res)
}

func (h *Handler) importImage(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.UserIDFromContext(c)
	}
	middleware.SetUserID(c, req.UserID)

	res, err := h.Svc.Import(c.Request.Context(), req)
	if err != nil {
		writePipelineError(c, err, "Import failed")
		return
	}
	c.Set("artworkId", res.ID)
	respond.JSON(c, http.StatusCreated, res)
}

func (h *Handler) history(c *gin.Context) {
	filter, err := ParseFilter(c.Query("tags"), c.Query("dateRange"), c.Query("sortBy"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	items, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c), filter)
	if err != nil {
		writeLookupError(c, err, "failed to fetch artwork history")
		return
	}
	respond.OK(c, items)
}

func (h *Handler) community(c *gin.Context) {
	limit := DefaultCommunityLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}
	items, err := h.Svc.Community(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch community artworks", nil)
		return
	}
	respond.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("artworkId", id)
	detail, err := h.Svc.Get(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeLookupError(c, err, "failed to fetch artwork details")
		return
	}
	respond.OK(c, detail)
}

func (h *Handler) storybook(c *gin.Context) {
	id := c.Param("id")
	c.Set("artworkId", id)
	book, err := h.Svc.Storybook(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeLookupError(c, err, "failed to render storybook")
		return
	}
	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": book.FileName}))
	c.Data(http.StatusOK, "text/html; charset=utf-8", book.HTML)
}

func (h *Handler) original(c *gin.Context) {
	id := c.Param("id")
	c.Set("artworkId", id)
	rc, contentType, err := h.Svc.OpenOriginal(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeLookupError(c, err, "failed to read original image")
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

type shareRequest struct {
	UserID string `json:"userId"`
	Shared *bool  `json:"shared"`
}

func (h *Handler) share(c *gin.Context) {
	id := c.Param("id")
	c.Set("artworkId", id)
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Shared == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "shared is required", nil)
		return
	}
	middleware.SetUserID(c, req.UserID)

	if err := h.Svc.SetShared(c.Request.Context(), id, middleware.UserIDFromContext(c), *req.Shared); err != nil {
		writeLookupError(c, err, "failed to update artwork")
		return
	}
	respond.OK(c, gin.H{"id": id, "shared": *req.Shared})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("artworkId", id)
	if err := h.Svc.Delete(c.Request.Context(), id, middleware.UserIDFromContext(c)); err != nil {
		writeLookupError(c, err, "failed to delete artwork")
		return
	}
	respond.OK(c, gin.H{"message": "Artwork deleted"})
}

// writePipelineError keeps the flat {error, details} body the upload client reads.
func writePipelineError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, fetch.ErrUnsafeURL):
		respond.PipelineError(c, http.StatusBadRequest, "validation_error", "imageUrl not allowed", err.Error())
	case errors.Is(err, fetch.ErrNotImage):
		respond.PipelineError(c, http.StatusUnsupportedMediaType, "not_image", "remote resource is not an image", err.Error())
	case errors.Is(err, fetch.ErrTooLarge):
		respond.PipelineError(c, http.StatusRequestEntityTooLarge, "too_large", "remote image exceeds size limit", err.Error())
	case errors.Is(err, fetch.ErrUpstream):
		respond.PipelineError(c, http.StatusBadGateway, "upstream_error", "failed to fetch image", err.Error())
	case errors.Is(err, vision.ErrAnalysisFailed):
		respond.PipelineError(c, http.StatusInternalServerError, "analysis_failed", message, err.Error())
	default:
		respond.PipelineError(c, http.StatusInternalServerError, "internal_error", message, err.Error())
	}
}

func writeLookupError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "artwork belongs to another user", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "artwork not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}

func parseGenres(raw string) ([]vision.Genre, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []vision.Genre{}, nil
	}
	var genres []vision.Genre
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, err
	}
	if genres == nil {
		genres = []vision.Genre{}
	}
	return genres, nil
}

// contentTypeOf trusts the declared part type unless it is missing or generic.
func contentTypeOf(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
