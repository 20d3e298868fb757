// Command example-app is a small relying party that signs visitors in with
// civid. Run a civid server, then:
//
//	example-app -civid http://localhost:8080 -listen :10000
package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/pkg/client"
	"git.sr.ht/~jakintosh/civid/pkg/signer"
)

const (
	userCookieName = "example_user"
	userLifetime   = 24 * time.Hour
)

var homePage = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<body>
{{if .}}
<p>Signed in as <strong>{{.}}</strong>.</p>
<a href="/auth/logout">Log out</a>
{{else}}
<a href="/auth/login">Log in with civid</a>
{{end}}
</body>
</html>`))

type exampleApp struct {
	civid  *client.Client
	users  *signer.Signer
	logger *zap.Logger
}

func main() {
	cividURL := flag.String("civid", "http://localhost:8080", "civid server base URL")
	listen := flag.String("listen", ":10000", "listen address")
	redirect := flag.String("redirect", "http://localhost:10000/auth/callback", "callback URL registered with civid")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "example-app: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	civid, err := client.New(client.Config{
		ServerURL:   *cividURL,
		RedirectURL: *redirect,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("invalid client config", zap.Error(err))
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		logger.Fatal("failed to generate cookie key", zap.Error(err))
	}

	a := &exampleApp{
		civid:  civid,
		users:  signer.New(key, "example-app-user"),
		logger: logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", a.home).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", civid.BeginAuthorization).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", civid.CallbackHandler(a.signedIn, a.callbackFailed)).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", a.logout).Methods(http.MethodGet)

	logger.Info("listening", zap.String("addr", *listen), zap.String("civid", *cividURL))
	server := &http.Server{
		Addr:              *listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func (a *exampleApp) currentUser(r *http.Request) string {
	cookie, err := r.Cookie(userCookieName)
	if err != nil {
		return ""
	}
	name, err := a.users.Unsign(cookie.Value, userLifetime, time.Now())
	if err != nil {
		return ""
	}
	return name
}

func (a *exampleApp) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homePage.Execute(w, a.currentUser(r)); err != nil {
		a.logger.Error("failed to render home", zap.Error(err))
	}
}

func (a *exampleApp) signedIn(w http.ResponseWriter, r *http.Request, id *client.Identity) {
	a.logger.Info("signed in", zap.String("user", id.User))
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    a.users.Sign(id.DisplayName, time.Now()),
		Path:     "/",
		MaxAge:   int(userLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *exampleApp) callbackFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, client.ErrDeclined):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, client.ErrStateMismatch):
		http.Error(w, "Login expired, please try again", http.StatusBadRequest)
	case errors.Is(err, client.ErrInvalidCode), errors.Is(err, client.ErrMissingCode):
		http.Error(w, "Login failed", http.StatusUnauthorized)
	default:
		a.logger.Warn("identity lookup failed", zap.Error(err))
		http.Error(w, "Identity server unavailable", http.StatusBadGateway)
	}
}

func (a *exampleApp) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   userCookieName,
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
