package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all EPX routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/epx", func(r chi.Router) {
		r.Get("/indices", h.HandleGetIndices)
		r.Post("/refresh", h.HandleRefresh)
	})
}
