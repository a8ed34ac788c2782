package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	OK   bool   `json:"ok"`
	Env  string `json:"env"`
	Time int64  `json:"time"`
}

// Health handles GET /healthz.
func Health(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			OK:   true,
			Env:  env,
			Time: time.Now().UnixMilli(),
		})
	}
}
