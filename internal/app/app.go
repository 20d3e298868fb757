// Package app serves the browser-facing pages: the home page, the login and
// logout links, and the authorization prompt shown to users on behalf of
// relying parties.
package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/resources"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/internal/session"
)

var (
	errInvalidCSRF   = errors.New("invalid CSRF token")
	errMissingAction = errors.New("missing authorization action")
)

type App struct {
	service   *service.Service
	sessions  *session.Store
	templates *resources.Templates
	logger    *zap.Logger
	botName   string
}

func New(
	svc *service.Service,
	sessions *session.Store,
	templates *resources.Templates,
	logger *zap.Logger,
	botName string,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		service:   svc,
		sessions:  sessions,
		templates: templates,
		logger:    logger,
		botName:   botName,
	}
}

// BuildRouter registers the page routes on r. limited wraps the handlers
// that consume credentials.
func (a *App) BuildRouter(
	r *mux.Router,
	limited func(http.Handler) http.Handler,
) {
	r.HandleFunc("/", a.Home()).Methods(http.MethodGet)
	r.Handle("/in/{token}", limited(a.Login())).Methods(http.MethodGet)
	r.HandleFunc("/out", a.Logout()).Methods(http.MethodGet)
	r.HandleFunc("/authorize", a.AuthorizeForm()).Methods(http.MethodGet)
	r.HandleFunc("/authorize", a.Authorize()).Methods(http.MethodPost)
}

// NotFound renders the 404 page.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusNotFound, "The page you requested does not exist.")
}

// MethodNotAllowed renders the 405 page.
func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusMethodNotAllowed, "That method is not supported here.")
}

// Panic renders the 500 page after a recovered panic.
func (a *App) Panic(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusInternalServerError, "Something went wrong!")
}

// loadSession never fails; a bad cookie just means a fresh session.
func (a *App) loadSession(r *http.Request) *session.Session {
	sess, err := a.sessions.Load(r)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		a.logAppErr(r, "discarding session", err)
	}
	return sess
}

func (a *App) saveSession(
	w http.ResponseWriter,
	r *http.Request,
	sess *session.Session,
) bool {
	if err := a.sessions.SaveIfModified(w, sess); err != nil {
		a.logger.Error("failed to save session",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		a.renderError(w, r, http.StatusInternalServerError, "Something went wrong!")
		return false
	}
	return true
}

func (a *App) render(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	name string,
	data any,
) {
	page, err := a.templates.Render(name, data)
	if err != nil {
		a.logger.Error("couldn't render template",
			zap.String("template", name),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(serverErrorHTML))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(page)
}

type errorPage struct {
	Status  int
	Title   string
	Message string
}

func (a *App) renderError(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	message string,
) {
	title := http.StatusText(status)
	if status == http.StatusInternalServerError {
		title = "Server Error"
	}
	a.render(w, r, status, "error.html", errorPage{
		Status:  status,
		Title:   title,
		Message: message,
	})
}

// writeError maps a failure to the page the user sees. The full error,
// including any private cause, only goes to the log.
func (a *App) writeError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status, message := http.StatusInternalServerError, "Something went wrong!"
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		status, message = http.StatusUnauthorized, "Invalid or expired login code"
	case errors.Is(err, service.ErrMissingRedirect):
		status, message = http.StatusBadRequest, "Missing required redirect URI"
	case errors.Is(err, service.ErrMalformedRedirect):
		status, message = http.StatusBadRequest, "Malformed redirect URI"
	case errors.Is(err, service.ErrRedirectScheme):
		status, message = http.StatusBadRequest, "Redirect URI must be http or https"
	case errors.Is(err, errInvalidCSRF):
		status, message = http.StatusBadRequest, "Invalid CSRF token"
	case errors.Is(err, errMissingAction):
		status, message = http.StatusBadRequest, "Missing authorization action"
	case errors.Is(err, service.ErrNotSignedIn):
		status, message = http.StatusBadRequest, "No authenticated user to identify"
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		a.logAppErr(r, "request rejected", err)
	}
	a.renderError(w, r, status, message)
}

// logAppErr logs at debug level; the path is left out because it may hold
// a credential.
func (a *App) logAppErr(r *http.Request, msg string, err error) {
	a.logger.Debug(msg,
		zap.String("method", r.Method),
		zap.String("route", routeName(r)),
		zap.Error(err),
	)
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

const serverErrorHTML = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Server Error</title></head>
<body><div class="panel"><h1>500 Server Error</h1><p>Something went wrong!</p></div></body>
</html>
`
