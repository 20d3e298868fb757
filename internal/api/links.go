package api

import (
	"net/http"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/service"
)

type CreateLinkRequest struct {
	Username string `json:"username"`
}

type CreateLinkResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// CreateLink mints a login link for a trusted issuer authenticated with
// HTTP basic auth.
func (a *API) CreateLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, secret, ok := r.BasicAuth()
		if !ok {
			a.writeError(w, r, service.ErrInvalidCredentials)
			return
		}
		if err := a.service.AuthenticateIssuer(name, secret); err != nil {
			a.writeError(w, r, err)
			return
		}

		var req CreateLinkRequest
		if ok := a.decodeRequest(&req, w, r); !ok {
			return
		}

		link, token, err := a.service.IssueLoginLink(req.Username)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.logger.Info("login link issued",
			zap.String("issuer", name),
			zap.String("username", req.Username),
		)
		returnJson(CreateLinkResponse{
			URL:   link.String(),
			Token: token,
		}, http.StatusOK, w)
	}
}
