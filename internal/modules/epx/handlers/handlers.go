// Package handlers provides HTTP handlers for the EPX index series.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/modules/epx"
	"github.com/rs/zerolog"
)

// Ingestor is the part of epx.Ingestor the handlers need
type Ingestor interface {
	Indices(ctx context.Context) []domain.EpxIndex
	FetchAndPersist(ctx context.Context) epx.Result
}

// Handler handles EPX HTTP requests
type Handler struct {
	ingestor Ingestor
	log      zerolog.Logger
}

// NewHandler creates a new EPX handler
func NewHandler(ingestor Ingestor, log zerolog.Logger) *Handler {
	return &Handler{
		ingestor: ingestor,
		log:      log.With().Str("handler", "epx").Logger(),
	}
}

// HandleGetIndices handles GET /api/epx/indices
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	indices := h.ingestor.Indices(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"count":   len(indices),
		"indices": indices,
	})
}

// HandleRefresh handles POST /api/epx/refresh.
// Ingestion failures are reported in the body with status "warning", never as an HTTP error.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	result := h.ingestor.FetchAndPersist(r.Context())
	h.writeJSON(w, http.StatusOK, result)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
