package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	redisstore "github.com/MrSnakeDoc/toonshare/internal/store/redis"
)

const pingTimeout = 2 * time.Second

type componentStatus struct {
	OK       bool   `json:"ok"`
	Sessions *int   `json:"sessions,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Impact   string `json:"impact,omitempty"`
	Error    string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		components := map[string]componentStatus{
			"shares":     checkShares(r.Context(), d),
			"engagement": checkEngagement(r.Context(), d),
			"sessions":   checkSessions(r.Context(), d),
		}

		response := infraResponse{
			Status:     determineStatus(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineStatus(components map[string]componentStatus) string {
	// Shares are the source of truth: without them nothing can be served
	if shares, exists := components["shares"]; exists && !shares.OK {
		return "critical"
	}

	// Engagement and sessions degrade features, not pages
	for _, name := range []string{"engagement", "sessions"} {
		if c, exists := components[name]; exists && !c.OK {
			return "degraded"
		}
	}

	return "optimal"
}

func checkShares(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Shares.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: "sqlite", Impact: "shares-unavailable", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "sqlite"}
}

func checkEngagement(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Engagement.Ping(ctx); err != nil {
		return componentStatus{OK: false, Impact: "likes-views-comments-disabled", Error: err.Error()}
	}
	return componentStatus{OK: true}
}

func checkSessions(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: d.SessionBackend, Impact: "sessions-lost-on-restart"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: d.SessionBackend, Impact: "sessions-reset", Error: "timeout"}
	}

	status := componentStatus{OK: true, Mode: d.SessionBackend}
	if n, err := redisstore.NewStore(d.RedisClient).CountSessions(ctx); err == nil {
		status.Sessions = &n
	}
	return status
}
