package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/handlers"
)

func init() { Register("auth", registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Get("/auth/google", handlers.Login(d))

	s := withSession(r, d)
	s.Get("/auth/google/callback", handlers.Callback(d))
	s.Get("/auth/logout", handlers.Logout(d))
	s.Post("/auth/logout", handlers.Logout(d))
}
