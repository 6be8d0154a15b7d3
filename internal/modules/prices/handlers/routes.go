package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Post("/refresh", h.HandleRefresh)
		r.Get("/status", h.HandleStatus)
		r.Get("/latest", h.HandleLatest)
	})
}
