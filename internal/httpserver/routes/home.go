package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/mw"
)

func init() { Register("home", registerHome) }

func registerHome(r chi.Router, d deps.Deps) {
	s := withSession(r, d)
	s.Get("/", handlers.Home(d))
	s.Get("/discover", handlers.Discover(d))
}

// withSession scopes the host guard and the session middleware to visitor
// routes so ops endpoints never allocate sessions.
func withSession(r chi.Router, d deps.Deps) chi.Router {
	return r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), d.Sessions.Middleware)
}
