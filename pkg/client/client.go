package client

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDeclined      = errors.New("user declined to identify")
	ErrStateMismatch = errors.New("callback state does not match")
	ErrMissingCode   = errors.New("callback carries no identity code")
	ErrInvalidCode   = errors.New("identity code rejected")
	ErrRequest       = errors.New("failed to reach civid")
	ErrResponse      = errors.New("invalid userinfo response")
)

// StateCookieName holds the state between BeginAuthorization and
// HandleCallback.
const StateCookieName = "civid_state"

// StateLifetime bounds how long a user may take on the authorize page.
const StateLifetime = 10 * time.Minute

// Identity is what civid reveals about a user.
type Identity struct {
	User        string `json:"user"`
	DisplayName string `json:"display_name"`
}

// CookieOptions configures the state cookie.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

type Config struct {
	ServerURL   string // civid base URL, required
	RedirectURL string // this application's callback, required
	HTTPClient  *http.Client
	Cookies     CookieOptions
	Logger      *zap.Logger
}

type Client struct {
	serverURL   *url.URL
	redirectURL string
	httpClient  *http.Client
	cookies     CookieOptions
	logger      *zap.Logger
}

func New(cfg Config) (*Client, error) {
	server, err := parseAbsolute(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if _, err := parseAbsolute(cfg.RedirectURL); err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cookies := cfg.Cookies
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	// civid redirects back with a top-level GET, Strict would drop the cookie
	if cookies.SameSite == 0 || cookies.SameSite == http.SameSiteStrictMode {
		cookies.SameSite = http.SameSiteLaxMode
	}

	return &Client{
		serverURL:   server,
		redirectURL: cfg.RedirectURL,
		httpClient:  httpClient,
		cookies:     cookies,
		logger:      logger,
	}, nil
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("'%s' must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("'%s' has no host", raw)
	}
	return u, nil
}

// AuthorizeURL returns the civid page that asks the user to identify to
// this application. An empty state is omitted.
func (c *Client) AuthorizeURL(state string) string {
	u := *c.serverURL
	u.Path = c.serverURL.Path + "/authorize"
	q := url.Values{}
	q.Set("redirect_uri", c.redirectURL)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// BeginAuthorization stores a fresh state in a cookie and redirects the
// browser to civid. It can be registered directly as a route handler.
func (c *Client) BeginAuthorization(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     c.cookies.Path,
		MaxAge:   int(StateLifetime / time.Second),
		Secure:   c.cookies.Secure,
		HttpOnly: true,
		SameSite: c.cookies.SameSite,
	})
	http.Redirect(w, r, c.AuthorizeURL(state), http.StatusSeeOther)
}

// HandleCallback checks the callback's state against the cookie set by
// BeginAuthorization, clears it, and exchanges the code.
func (c *Client) HandleCallback(
	w http.ResponseWriter,
	r *http.Request,
) (
	*Identity,
	error,
) {
	query := r.URL.Query()

	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: no state cookie", ErrStateMismatch)
	}
	c.clearState(w)
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get("state"))) != 1 {
		return nil, ErrStateMismatch
	}

	if query.Get("error") == "declined" {
		return nil, ErrDeclined
	}
	code := query.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	return c.UserInfo(r.Context(), code)
}

// CallbackHandler wraps HandleCallback into a route handler.
func (c *Client) CallbackHandler(
	onIdentity func(http.ResponseWriter, *http.Request, *Identity),
	onError func(http.ResponseWriter, *http.Request, error),
) http.HandlerFunc {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := c.HandleCallback(w, r)
		if err != nil {
			c.logger.Debug("callback failed", zap.Error(err))
			onError(w, r, err)
			return
		}
		onIdentity(w, r, id)
	}
}

func (c *Client) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Path:     c.cookies.Path,
		MaxAge:   -1,
		Secure:   c.cookies.Secure,
		HttpOnly: true,
		SameSite: c.cookies.SameSite,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// UserInfo exchanges an identity code at civid's /userinfo endpoint.
func (c *Client) UserInfo(
	ctx context.Context,
	code string,
) (
	*Identity,
	error,
) {
	if code == "" {
		return nil, ErrMissingCode
	}

	u := *c.serverURL
	u.Path = c.serverURL.Path + "/userinfo"
	u.RawQuery = url.Values{"code": {code}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("exchanging identity code", zap.String("url", c.serverURL.String()+"/userinfo"))
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("userinfo request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCode, e.Error)
	default:
		c.logger.Error("unexpected userinfo status", zap.Int("status", res.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrResponse, res.StatusCode)
	}

	id := new(Identity)
	if err := json.Unmarshal(body, id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}
	if id.User == "" {
		return nil, fmt.Errorf("%w: empty user", ErrResponse)
	}
	return id, nil
}
