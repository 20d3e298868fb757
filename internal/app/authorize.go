package app

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/service"
)

type authorizePage struct {
	Username  string
	AppDomain string
	Action    string
	CSRFToken string
	BotName   string
}

// AuthorizeForm asks the signed-in user whether to identify themselves to
// the relying party named by redirect_uri.
func (a *App) AuthorizeForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := service.ParseRedirectURI(r.URL.Query().Get("redirect_uri"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		sess := a.loadSession(r)
		csrf := sess.CSRFToken()
		if ok := a.saveSession(w, r, sess); !ok {
			return
		}

		a.render(w, r, http.StatusOK, "authorize.html", authorizePage{
			Username:  sess.Username,
			AppDomain: redirect.Host,
			Action:    r.URL.RequestURI(),
			CSRFToken: csrf,
			BotName:   a.botName,
		})
	}
}

// Authorize handles the user's answer and sends them back to the relying
// party with either an identity code or error=declined.
func (a *App) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		redirect, err := service.ParseRedirectURI(query.Get("redirect_uri"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		sess := a.loadSession(r)
		submitted := r.PostFormValue("csrf_token")
		if submitted == "" || sess.CSRF == "" ||
			subtle.ConstantTimeCompare([]byte(submitted), []byte(sess.CSRF)) != 1 {
			a.writeError(w, r, errInvalidCSRF)
			return
		}

		if !sess.SignedIn() {
			a.writeError(w, r, service.ErrNotSignedIn)
			return
		}

		action := r.PostFormValue("action")
		if action == "" {
			a.writeError(w, r, errMissingAction)
			return
		}

		_, hasState := query["state"]
		target, err := a.service.Authorize(service.AuthorizeRequest{
			Username: sess.Username,
			Redirect: redirect,
			State:    query.Get("state"),
			HasState: hasState,
			Identify: action == "identify",
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.logger.Info("authorization answered",
			zap.String("username", sess.Username),
			zap.String("app_domain", redirect.Host),
			zap.Bool("identified", action == "identify"),
		)
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}
