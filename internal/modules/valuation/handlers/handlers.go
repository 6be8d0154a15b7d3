// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// SeriesLoader returns the persisted EPX series
type SeriesLoader interface {
	Indices(ctx context.Context) []domain.EpxIndex
}

// Handler handles valuation HTTP requests
type Handler struct {
	series SeriesLoader
	log    zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(series SeriesLoader, log zerolog.Logger) *Handler {
	return &Handler{
		series: series,
		log:    log.With().Str("handler", "valuation").Logger(),
	}
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// HandleValuation handles POST /api/valuation. The body is a valuation.Input; when its
// series is empty the stored EPX series for the property's segment is used.
func (h *Handler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	var input valuation.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	if len(input.Series) == 0 {
		segment := input.RealEstate.Segment
		if segment == "" {
			segment = valuation.SegmentApartment
		}
		series, err := valuation.SeriesForSegment(h.series.Indices(r.Context()), segment)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
			return
		}
		input.Series = series
	}

	dto, err := valuation.BuildValuation(input)
	if err != nil {
		if isPreconditionError(err) {
			h.log.Warn().Err(err).Str("baseline_month", input.RealEstate.BaselineMonth).Msg("Valuation precondition failed")
			h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("Valuation failed")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "valuation failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"data": dto,
	})
}

func isPreconditionError(err error) bool {
	return errors.Is(err, valuation.ErrEmptySeries) ||
		errors.Is(err, valuation.ErrBaselineMonthMissing) ||
		errors.Is(err, valuation.ErrZeroBaselineIndex)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
