package api

import (
	"net/http"

	"go.uber.org/zap"
)

type HealthResponse struct {
	Status string `json:"status"`
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.service.Healthy(); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			returnJson(HealthResponse{Status: "unavailable"}, http.StatusServiceUnavailable, w)
			return
		}
		returnJson(HealthResponse{Status: "ok"}, http.StatusOK, w)
	}
}
