package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
)

type healthzResponse struct {
	Status         string  `json:"status"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Version        string  `json:"version,omitempty"`
	Commit         string  `json:"commit,omitempty"`
	BuildDate      string  `json:"build_date,omitempty"`
	GoVersion      string  `json:"go_version,omitempty"`
	SessionBackend string  `json:"session_backend,omitempty"`
	DefaultLang    string  `json:"default_lang,omitempty"`
}

// Healthz is the liveness probe. It touches no backend.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:         "ok",
			UptimeSeconds:  time.Since(d.StartTime).Seconds(),
			Version:        d.Version,
			Commit:         d.Commit,
			BuildDate:      d.BuildDate,
			GoVersion:      d.GoVersion,
			SessionBackend: d.SessionBackend,
		}
		if d.Messages != nil {
			resp.DefaultLang = d.Messages.DefaultLanguage()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
