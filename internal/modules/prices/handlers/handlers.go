// Package handlers provides HTTP handlers for price refresh and lookup.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/Alexander4822/Spielwiese/internal/marketdata"
	"github.com/Alexander4822/Spielwiese/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MarketDataService is the part of marketdata.Service the handlers need
type MarketDataService interface {
	RefreshPrices(ctx context.Context, req marketdata.RefreshRequest) (*marketdata.RefreshResult, error)
	Status() domain.MarketDataStatus
}

// QuoteReader reads persisted quotes
type QuoteReader interface {
	GetLatestBySymbols(ctx context.Context, symbols []string) (map[string]domain.PersistedPriceQuote, error)
}

// Handler handles price HTTP requests
type Handler struct {
	service MarketDataService
	quotes  QuoteReader
	log     zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(service MarketDataService, quotes QuoteReader, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		quotes:  quotes,
		log:     log.With().Str("handler", "prices").Logger(),
	}
}

// RefreshCounts is the number of quotes returned per asset class
type RefreshCounts struct {
	Equities int `json:"equities"`
	Cryptos  int `json:"cryptos"`
	Fx       int `json:"fx"`
}

// RefreshResponse is the body of a successful POST /api/prices/refresh
type RefreshResponse struct {
	OK          bool                     `json:"ok"`
	RunID       string                   `json:"runId"`
	RefreshedAt string                   `json:"refreshedAt"`
	Counts      RefreshCounts            `json:"counts"`
	Data        *marketdata.RefreshResult `json:"data"`
}

// StatusResponse flattens the market data status next to the ok flag
type StatusResponse struct {
	OK bool `json:"ok"`
	domain.MarketDataStatus
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// HandleRefresh handles POST /api/prices/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req marketdata.RefreshRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.log.Warn().Err(err).Msg("Failed to decode refresh request")
			h.writeJSON(w, http.StatusBadRequest, errorResponse{OK: false, Message: "invalid request body"})
			return
		}
	}

	runID := uuid.New().String()
	log := h.log.With().Str("run_id", runID).Logger()

	result, err := h.service.RefreshPrices(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Price refresh failed")
		h.writeJSON(w, http.StatusBadGateway, errorResponse{OK: false, Message: err.Error()})
		return
	}

	log.Info().
		Int("equities", len(result.Equities)).
		Int("cryptos", len(result.Cryptos)).
		Int("fx", len(result.Fx)).
		Msg("Price refresh completed")

	h.writeJSON(w, http.StatusOK, RefreshResponse{
		OK:          true,
		RunID:       runID,
		RefreshedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: RefreshCounts{
			Equities: len(result.Equities),
			Cryptos:  len(result.Cryptos),
			Fx:       len(result.Fx),
		},
		Data: result,
	})
}

// HandleStatus handles GET /api/prices/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{OK: true, MarketDataStatus: h.service.Status()})
}

// HandleLatest handles GET /api/prices/latest?symbols=AAPL,BTC
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	symbols := utils.NormalizeSymbols(utils.ParseCSV(r.URL.Query().Get("symbols")))
	if len(symbols) == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{OK: false, Message: "symbols query parameter is required"})
		return
	}

	quotes, err := h.quotes.GetLatestBySymbols(r.Context(), symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load persisted quotes")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{OK: false, Message: "failed to load quotes"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"quotes": quotes,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
