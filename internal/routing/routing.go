// Package routing assembles the HTTP handler for the civid server.
package routing

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/api"
	"git.sr.ht/~jakintosh/civid/internal/app"
	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/internal/ratelimit"
	"git.sr.ht/~jakintosh/civid/internal/resources"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/internal/session"
)

// Deps are the collaborators the router hands to its handlers. Limiter,
// Proxies, Metrics, and Logger may be nil.
type Deps struct {
	Service   *service.Service
	Sessions  *session.Store
	Templates *resources.Templates
	Metrics   *observability.Metrics
	Limiter   *ratelimit.MapLimiter
	Proxies   *observability.TrustedProxies
	Logger    *zap.Logger
	BotName   string
	Now       func() time.Time
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limited := func(h http.Handler) http.Handler { return h }
	if d.Limiter != nil {
		limited = ratelimit.Middleware(d.Limiter, d.Proxies, logger, d.Metrics, d.Now)
	}

	web := app.New(d.Service, d.Sessions, d.Templates, logger, d.BotName)
	accessLog := observability.WithAccessLog(logger, d.Metrics, d.Proxies)

	r := mux.NewRouter()
	r.Use(accessLog)

	api.New(d.Service, logger).BuildRouter(r, limited)
	web.BuildRouter(r, limited)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	// mux skips middleware for these
	r.NotFoundHandler = accessLog(http.HandlerFunc(web.NotFound))
	r.MethodNotAllowedHandler = accessLog(http.HandlerFunc(web.MethodNotAllowed))

	var h http.Handler = r
	h = observability.WithRecover(logger, web.Panic)(h)
	h = observability.WithRequestID(h)
	return h
}
