// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/database"
	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/internal/ratelimit"
	"git.sr.ht/~jakintosh/civid/internal/resources"
	"git.sr.ht/~jakintosh/civid/internal/routing"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/internal/session"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

const (
	SigningKey = "testkey"
	SecretKey  = "testkey"
	BaseURL    = "http://civid.test"
	BotName    = "edsgar"
)

// Clock is a settable clock shared by everything in a TestEnv.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// At parses an RFC 3339 instant or fails the test.
func At(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB        *database.SQLiteStore
	Engine    *tokens.Engine
	Service   *service.Service
	Sessions  *session.Store
	Templates *resources.Templates
	Metrics   *observability.Metrics
	Clock     *Clock
	Router    http.Handler
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
// and a clock frozen at 2015-10-17T14:00:00Z.
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	clock := NewClock(At(t, "2015-10-17T14:00:00Z"))
	engine := tokens.New([]byte(SigningKey))
	metrics := observability.NewMetrics()

	// create service
	svc, err := service.New(
		engine,
		db.IssuerStore(),
		BaseURL,
		service.PasswordModeTesting,
		clock.Now,
		metrics,
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	templates, err := resources.NewTemplates("", nil)
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	// setup cleanup
	t.Cleanup(func() {
		_ = db.Close()
	})

	return &TestEnv{
		DB:        db,
		Engine:    engine,
		Service:   svc,
		Sessions:  session.NewStore([]byte(SecretKey), false, clock.Now),
		Templates: templates,
		Metrics:   metrics,
		Clock:     clock,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the full router
// without rate limiting.
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	return SetupTestEnvWithLimiter(t, nil)
}

// SetupTestEnvWithLimiter is SetupTestEnvWithRouter with a rate limiter on
// the credential endpoints.
func SetupTestEnvWithLimiter(
	t *testing.T,
	limiter *ratelimit.MapLimiter,
) *TestEnv {
	t.Helper()
	return SetupTestEnvBehindProxy(t, limiter, nil)
}

// SetupTestEnvBehindProxy is SetupTestEnvWithLimiter with forwarding
// headers trusted from the given proxy addresses or ranges.
func SetupTestEnvBehindProxy(
	t *testing.T,
	limiter *ratelimit.MapLimiter,
	trusted []string,
) *TestEnv {
	t.Helper()
	proxies, err := observability.ParseTrustedProxies(trusted)
	if err != nil {
		t.Fatalf("failed to parse trusted proxies: %v", err)
	}
	env := SetupTestEnv(t)
	env.Router = routing.NewRouter(routing.Deps{
		Service:   env.Service,
		Sessions:  env.Sessions,
		Templates: env.Templates,
		Metrics:   env.Metrics,
		Limiter:   limiter,
		Proxies:   proxies,
		Logger:    zap.NewNop(),
		BotName:   BotName,
		Now:       env.Clock.Now,
	})
	return env
}

// RegisterTestIssuer creates a link issuer in the database
func (env *TestEnv) RegisterTestIssuer(
	t *testing.T,
	name string,
	secret string,
) {
	t.Helper()
	if err := env.Service.RegisterIssuer(name, secret); err != nil {
		t.Fatalf("failed to register test issuer: %v", err)
	}
}

// SessionCookie returns a signed session cookie for username and csrf.
// Either may be empty.
func (env *TestEnv) SessionCookie(
	t *testing.T,
	username string,
	csrf string,
) *http.Cookie {
	t.Helper()
	res := httptest.NewRecorder()
	sess := &session.Session{Username: username, CSRF: csrf}
	if err := env.Sessions.Save(res, sess); err != nil {
		t.Fatalf("failed to save test session: %v", err)
	}
	cookies := res.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one session cookie, got %d", len(cookies))
	}
	return cookies[0]
}

// LoadSession decodes the session cookie set by a response, if any.
func (env *TestEnv) LoadSession(
	t *testing.T,
	result HTTPResult,
) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range (&http.Response{Header: result.Headers}).Cookies() {
		req.AddCookie(c)
	}
	sess, _ := env.Sessions.Load(req)
	return sess
}
