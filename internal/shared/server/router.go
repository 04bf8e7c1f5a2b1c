package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/shared/config"
	"visioncloud-backend/internal/shared/metrics"
	"visioncloud-backend/internal/shared/server/middleware"
	"visioncloud-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	GroupPipeline = "PIPELINE"
	GroupRead     = "READ"
)

// RouteRegistrar attaches a package's routes to an API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// AuthRoutes registers OAuth routes at the root and data routes under the API group.
type AuthRoutes interface {
	RegisterRoutes(root gin.IRoutes, api gin.IRoutes)
}

// RouterDeps are the handlers and settings the router is assembled from.
type RouterDeps struct {
	Config         config.Config
	ArtworkHandler RouteRegistrar
	ProxyHandler   RouteRegistrar
	Pinterest      AuthRoutes
	// FilesDir is served under /files when blobs are stored on local disk.
	FilesDir string
	Ready    func(ctx context.Context) error
	// RateRules overrides DefaultRateRules.
	RateRules map[string]middleware.RateLimitRule
}

// DefaultRateRules keeps analysis requests well below what the providers tolerate.
func DefaultRateRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupPipeline: {Rate: 1.0 / 6.0, Burst: 3},
		GroupRead:     {Rate: 10, Burst: 40},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateRules
	if rules == nil {
		rules = DefaultRateRules()
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.ClaimedIdentity(),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.FilesDir != "" {
		r.Static("/files", deps.FilesDir)
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", "record store unavailable", nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	limited := api.Group("")
	limited.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: GroupRead,
		GroupFor:     groupFor,
	}))
	if deps.ArtworkHandler != nil {
		deps.ArtworkHandler.RegisterRoutes(limited)
	}
	if deps.ProxyHandler != nil {
		deps.ProxyHandler.RegisterRoutes(limited)
	}
	if deps.Pinterest != nil {
		deps.Pinterest.RegisterRoutes(r, limited)
	}
	return r
}

func groupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return GroupRead
	}
	switch strings.TrimSuffix(c.FullPath(), "/") {
	case "/api/artworks", "/api/artworks/import":
		return GroupPipeline
	}
	return GroupRead
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
