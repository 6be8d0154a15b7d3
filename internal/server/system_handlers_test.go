package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDB struct {
	err error
}

func (s stubDB) Name() string { return "prices" }

func (s stubDB) HealthCheck(ctx context.Context) error { return s.err }

type stubMarketData struct {
	status domain.MarketDataStatus
}

func (s stubMarketData) Status() domain.MarketDataStatus { return s.status }

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	reason := "Equity provider unavailable; serving cached values."

	tests := []struct {
		name       string
		db         HealthChecker
		marketData MarketDataStatusSource
		wantStatus string
		validate   func(t *testing.T, response SystemStatusResponse)
	}{
		{
			name:       "healthy without database",
			marketData: stubMarketData{},
			wantStatus: "healthy",
			validate: func(t *testing.T, response SystemStatusResponse) {
				assert.Nil(t, response.Database)
			},
		},
		{
			name:       "failing database check",
			db:         stubDB{err: errors.New("integrity check failed")},
			marketData: stubMarketData{},
			wantStatus: "degraded",
			validate: func(t *testing.T, response SystemStatusResponse) {
				require.NotNil(t, response.Database)
				assert.False(t, response.Database.Healthy)
				assert.Equal(t, "integrity check failed", response.Database.Error)
			},
		},
		{
			name:       "market data degraded",
			db:         stubDB{},
			marketData: stubMarketData{status: domain.MarketDataStatus{DegradedMode: true, DegradedReason: &reason}},
			wantStatus: "degraded",
			validate: func(t *testing.T, response SystemStatusResponse) {
				require.NotNil(t, response.Database)
				assert.True(t, response.Database.Healthy)
				require.NotNil(t, response.MarketData.DegradedReason)
				assert.Equal(t, reason, *response.MarketData.DegradedReason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandlers(zerolog.Nop(), "", tt.db, tt.marketData, nil)
			h.systemStats = func() (float64, float64) { return 1, 2 }

			req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
			w := httptest.NewRecorder()
			h.HandleSystemStatus(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response SystemStatusResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, 0, response.ScheduledJobs)
			tt.validate(t, response)
		})
	}
}

func TestSystemHandlers_GetDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 512*1024), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.bin"), make([]byte, 512*1024), 0644))

	h := NewSystemHandlers(zerolog.Nop(), dir, nil, nil, nil)

	assert.InDelta(t, 1.0, h.getDirSize(dir), 0.0001)
	assert.Equal(t, float64(0), h.getDirSize(filepath.Join(dir, "missing")))
}
