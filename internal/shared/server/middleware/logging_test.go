package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"visioncloud-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), ClaimedIdentity(), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("artworkId", "artwork-1")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	req := httptest.NewRequest(http.MethodGet, "/test?userId=user_123", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "artwork_id", "duration_ms", "status"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "user_123" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["artwork_id"] != "artwork-1" {
		t.Fatalf("unexpected artwork_id: %v", payload["artwork_id"])
	}
	if payload["request_id"] != resp.Header().Get("X-Request-Id") {
		t.Fatalf("request_id %v does not match header %q", payload["request_id"], resp.Header().Get("X-Request-Id"))
	}
}

func TestClaimedIdentityPrefersHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ClaimedIdentity())
	var seen string
	router.GET("/who", func(c *gin.Context) {
		seen = UserIDFromContext(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/who?userId=from-query", nil)
	req.Header.Set("X-User-Id", "from-header")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "from-header" {
		t.Fatalf("expected header identity, got %q", seen)
	}
}
