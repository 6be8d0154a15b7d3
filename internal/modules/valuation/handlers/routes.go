package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the valuation route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/valuation", h.HandleValuation)
}
