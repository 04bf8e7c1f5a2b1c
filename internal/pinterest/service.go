// Package pinterest implements the Pinterest OAuth token exchange and pin listing.
package pinterest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"visioncloud-backend/internal/shared/server/respond"
	"visioncloud-backend/internal/shared/telemetry"
)

const (
	DefaultAuthURL    = "https://www.pinterest.com/oauth/"
	DefaultTokenURL   = "https://api.pinterest.com/v5/oauth/token"
	DefaultAPIBaseURL = "https://api.pinterest.com/v5"

	// Scope is sent as one comma-separated value, as Pinterest expects.
	Scope = "pins:read,user_accounts:read,boards:read"

	sessionCookie = "vc_session"
)

// Config configures the Pinterest integration.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	UIBaseURL   string
	SessionTTL  time.Duration
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool

	AuthURL    string
	TokenURL   string
	APIBaseURL string
	// HTTPClient is used for token exchange and API calls when set.
	HTTPClient *http.Client
}

type session struct {
	State string
	Token *oauth2.Token
}

// Service handles the Pinterest OAuth flow and proxies pin listings.
type Service struct {
	oauthConfig *oauth2.Config
	uiBaseURL   string
	apiBaseURL  string
	httpClient  *http.Client
	secure      bool
	ttl         time.Duration
	sessions    *cache.Cache
}

// NewService builds a Service. Empty endpoint fields use Pinterest's production URLs.
func NewService(cfg Config) *Service {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		uiBaseURL:  strings.TrimRight(cfg.UIBaseURL, "/"),
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: cfg.HTTPClient,
		secure:     cfg.SecureCookie,
		ttl:        cfg.SessionTTL,
		sessions:   cache.New(cfg.SessionTTL, time.Hour),
	}
}

// RegisterRoutes attaches the OAuth routes to root and the pins route to api.
func (s *Service) RegisterRoutes(root gin.IRoutes, api gin.IRoutes) {
	root.GET("/auth", s.start)
	root.GET("/auth/pinterest/callback", s.callback)
	api.GET("/pins", s.pins)
}

func (s *Service) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

func (s *Service) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Pinterest auth not configured", nil)
		return
	}
	id, sess := s.session(c)
	sess.State = uuid.NewString()
	s.save(c, id, sess)

	url := s.oauthConfig.AuthCodeURL(sess.State, oauth2.SetAuthURLParam("refreshable", "true"))
	c.Redirect(http.StatusFound, url)
}

func (s *Service) callback(c *gin.Context) {
	id, sess := s.session(c)
	state := c.Query("state")
	if state == "" || sess.State == "" || state != sess.State {
		respond.Error(c, http.StatusForbidden, "invalid_state", "Invalid state", nil)
		return
	}
	sess.State = ""

	token, err := s.oauthConfig.Exchange(s.clientContext(c.Request.Context()), c.Query("code"))
	if err != nil {
		s.save(c, id, sess)
		telemetry.Error("pinterest.token_exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "token_exchange_failed", "Failed to get access token", nil)
		return
	}
	sess.Token = token
	s.save(c, id, sess)
	c.Redirect(http.StatusFound, s.uiBaseURL+"/pins")
}

// PinsResponse is the combined account and pin listing.
type PinsResponse struct {
	User  json.RawMessage `json:"user"`
	Items json.RawMessage `json:"items"`
}

func (s *Service) pins(c *gin.Context) {
	_, sess := s.session(c)
	if sess.Token == nil {
		respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated", nil)
		return
	}
	resp, err := s.ListPins(c.Request.Context(), sess.Token)
	if err != nil {
		telemetry.Error("pinterest.api_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "pinterest_error", "Error fetching pins & user info", nil)
		return
	}
	respond.OK(c, resp)
}

// ListPins fetches the user's pins and account concurrently.
func (s *Service) ListPins(ctx context.Context, token *oauth2.Token) (PinsResponse, error) {
	client := s.oauthConfig.Client(s.clientContext(ctx), token)
	var out PinsResponse
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var page struct {
			Items json.RawMessage `json:"items"`
		}
		if err := s.getJSON(ctx, client, "/pins", &page); err != nil {
			return err
		}
		out.Items = page.Items
		return nil
	})
	g.Go(func() error {
		return s.getJSON(ctx, client, "/user_account", &out.User)
	})
	if err := g.Wait(); err != nil {
		return PinsResponse{}, err
	}
	if len(out.Items) == 0 {
		out.Items = json.RawMessage("[]")
	}
	return out, nil
}

func (s *Service) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinterest %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("pinterest %s: %w", path, err)
	}
	return nil
}

func (s *Service) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// session returns the caller's session, creating an id when the cookie is absent.
func (s *Service) session(c *gin.Context) (string, session) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		return uuid.NewString(), session{}
	}
	if v, ok := s.sessions.Get(id); ok {
		if sess, ok := v.(session); ok {
			return id, sess
		}
	}
	return id, session{}
}

func (s *Service) save(c *gin.Context, id string, sess session) {
	s.sessions.Set(id, sess, s.ttl)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(s.ttl/time.Second), "/", "", s.secure, true)
}
