package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/handlers"
)

func init() { Register("list", registerList) }

func registerList(r chi.Router, d deps.Deps) {
	s := withSession(r, d)
	s.Post("/list/items", handlers.AddItem(d))
	s.Patch("/list/items/{index}", handlers.UpdateItem(d))
	s.Delete("/list/items/{index}", handlers.RemoveItem(d))
	s.Put("/list/sort", handlers.SetSort(d))
	s.Post("/list/publish", handlers.Publish(d))
}
