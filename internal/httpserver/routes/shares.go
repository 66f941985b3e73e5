package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/handlers"
)

func init() { Register("shares", registerShares) }

func registerShares(r chi.Router, d deps.Deps) {
	s := withSession(r, d)
	s.Put("/shares/{id}", handlers.UpdateShare(d))
	s.Post("/shares/{id}/like", handlers.ToggleLike(d))
	s.Post("/shares/{id}/comments", handlers.AddComment(d))
	s.Put("/shares/{id}/edit-mode", handlers.SetEditMode(d))
	s.Post("/shares/{id}/import", handlers.ImportShare(d))
}
