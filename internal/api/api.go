// Package api serves the machine-facing endpoints: identity code exchange
// for relying parties, login link creation for trusted issuers, and health.
package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/civid/internal/service"
)

var errBadContentType = errors.New("content type must be application/json")

type API struct {
	service *service.Service
	logger  *zap.Logger
}

func New(
	svc *service.Service,
	logger *zap.Logger,
) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service: svc,
		logger:  logger,
	}
}

// BuildRouter registers the API routes on r. limited wraps the handlers
// that consume or mint credentials.
func (a *API) BuildRouter(
	r *mux.Router,
	limited func(http.Handler) http.Handler,
) {
	r.Handle("/userinfo", limited(a.UserInfo())).Methods(http.MethodGet)
	r.Handle("/api/links", limited(a.CreateLink())).Methods(http.MethodPost)
	r.HandleFunc("/healthz", a.Health()).Methods(http.MethodGet)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) decodeRequest(
	req any,
	w http.ResponseWriter,
	r *http.Request,
) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		a.logApiErr(r, "unsupported content type", errBadContentType)
		returnJson(ErrorResponse{Error: "Content type must be application/json"}, http.StatusUnsupportedMediaType, w)
		return false
	}

	err = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(req)
	if err != nil {
		a.logApiErr(r, "bad json request", err)
		returnJson(ErrorResponse{Error: "Malformed JSON request"}, http.StatusBadRequest, w)
		return false
	}
	return true
}

func returnJson(
	data any,
	status int,
	w http.ResponseWriter,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps service errors to a status and a client-safe message.
// Private causes only reach the log.
func (a *API) writeError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, service.ErrMissingCode):
		status, message = http.StatusBadRequest, "No login code provided"
	case errors.Is(err, service.ErrInvalidCode):
		status, message = http.StatusBadRequest, "Invalid or expired identity code"
	case errors.Is(err, service.ErrInvalidUsername):
		status, message = http.StatusBadRequest, "Invalid username"
	case errors.Is(err, service.ErrIssuerNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid issuer credentials"
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="civid"`)
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		a.logApiErr(r, "request rejected", err)
	}
	returnJson(ErrorResponse{Error: message}, status, w)
}

func (a *API) logApiErr(r *http.Request, msg string, err error) {
	a.logger.Debug(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}
