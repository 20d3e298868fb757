package api

import (
	"net/http"
)

// UserInfo exchanges ?code= for the identity it carries.
func (a *API) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := a.service.UserInfo(r.URL.Query().Get("code"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(info, http.StatusOK, w)
	}
}
