package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type homePage struct {
	Username string
	BotName  string
}

func (a *App) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := a.loadSession(r)
		a.render(w, r, http.StatusOK, "home.html", homePage{
			Username: sess.Username,
			BotName:  a.botName,
		})
	}
}

// Login consumes a login link and signs the user in.
func (a *App) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := mux.Vars(r)["token"]

		username, err := a.service.Login(token)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		sess := a.loadSession(r)
		sess.SetUsername(username)
		if ok := a.saveSession(w, r, sess); !ok {
			return
		}

		a.logger.Info("user signed in", zap.String("username", username))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (a *App) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.sessions.Clear(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
