package pinterest

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePinterest(t *testing.T, failExchange bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v5/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("app:secret"))
		if r.Header.Get("Authorization") != want {
			http.Error(w, "bad client auth", http.StatusUnauthorized)
			return
		}
		if failExchange {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "the-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v5/pins", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"p1"}],"bookmark":null}`))
	})
	mux.HandleFunc("/v5/user_account", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"username":"ada"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(srv *httptest.Server) (*Service, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	svc := NewService(Config{
		AppID:       "app",
		AppSecret:   "secret",
		RedirectURL: "http://localhost:8080/auth/pinterest/callback",
		UIBaseURL:   "http://localhost:5173/",
		SessionTTL:  time.Hour,
		AuthURL:     srv.URL + "/oauth/",
		TokenURL:    srv.URL + "/v5/oauth/token",
		APIBaseURL:  srv.URL + "/v5",
		HTTPClient:  srv.Client(),
	})
	r := gin.New()
	svc.RegisterRoutes(r, r.Group("/api"))
	return svc, r
}

func get(r *gin.Engine, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func startFlow(t *testing.T, r *gin.Engine) (string, []*http.Cookie) {
	t.Helper()
	resp := get(r, "/auth", nil)
	require.Equal(t, http.StatusFound, resp.Code)
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "app", q.Get("client_id"))
	assert.Equal(t, Scope, q.Get("scope"))
	assert.Equal(t, "true", q.Get("refreshable"))
	require.NotEmpty(t, q.Get("state"))
	cookies := resp.Result().Cookies()
	require.NotEmpty(t, cookies)
	return q.Get("state"), cookies
}

func TestOAuthFlowAndPins(t *testing.T) {
	srv := fakePinterest(t, false)
	_, r := newTestService(srv)

	resp := get(r, "/api/pins", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	state, cookies := startFlow(t, r)
	resp = get(r, "/auth/pinterest/callback?code=the-code&state="+state, cookies)
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "http://localhost:5173/pins", resp.Header().Get("Location"))

	resp = get(r, "/api/pins", cookies)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"user":{"username":"ada"},"items":[{"id":"p1"}]}`, resp.Body.String())
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	srv := fakePinterest(t, false)
	_, r := newTestService(srv)

	_, cookies := startFlow(t, r)
	resp := get(r, "/auth/pinterest/callback?code=the-code&state=forged", cookies)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = get(r, "/auth/pinterest/callback?code=the-code&state=anything", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCallbackExchangeFailure(t *testing.T) {
	srv := fakePinterest(t, true)
	_, r := newTestService(srv)

	state, cookies := startFlow(t, r)
	resp := get(r, "/auth/pinterest/callback?code=the-code&state="+state, cookies)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "token_exchange_failed"))

	resp = get(r, "/api/pins", cookies)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestStartRequiresConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(Config{})
	r := gin.New()
	svc.RegisterRoutes(r, r.Group("/api"))

	resp := get(r, "/auth", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
