package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const serviceVersion = "1.0.0"

// HealthChecker is implemented by database.DB and the postgres and redis price sinks
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// MarketDataStatusSource is implemented by marketdata.Service
type MarketDataStatusSource interface {
	Status() domain.MarketDataStatus
}

// JobCounter is implemented by scheduler.Scheduler
type JobCounter interface {
	JobCount() int
}

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	db          HealthChecker // nil for the memory sink
	marketData  MarketDataStatusSource
	jobs        JobCounter
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance. db and jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, dataDir string, db HealthChecker, marketData MarketDataStatusSource, jobs JobCounter) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		db:          db,
		marketData:  marketData,
		jobs:        jobs,
	}
	h.systemStats = h.getSystemStats
	return h
}

// DatabaseStatus reports the local price database health
type DatabaseStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// SystemStatusResponse represents the system status payload
type SystemStatusResponse struct {
	Status        string                  `json:"status"` // healthy | degraded
	UptimeSeconds int64                   `json:"uptime_seconds"`
	StartedAt     string                  `json:"started_at"`
	CPUPercent    float64                 `json:"cpu_percent"`
	MemoryPercent float64                 `json:"memory_percent"`
	DataDirMB     float64                 `json:"data_dir_mb"`
	Database      *DatabaseStatus         `json:"database,omitempty"`
	ScheduledJobs int                     `json:"scheduled_jobs"`
	MarketData    domain.MarketDataStatus `json:"market_data"`
	LastUpdated   string                  `json:"last_updated"`
}

// GetSystemStatusSnapshot returns a snapshot of the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	now := time.Now()
	cpuPercent, memPercent := h.systemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(now.Sub(h.startupTime).Seconds()),
		StartedAt:     h.startupTime.UTC().Format(time.RFC3339),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		LastUpdated:   now.UTC().Format(time.RFC3339),
	}

	if h.dataDir != "" {
		response.DataDirMB = h.getDirSize(h.dataDir)
	}

	if h.db != nil {
		dbStatus := &DatabaseStatus{Name: h.db.Name(), Healthy: true}
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := h.db.HealthCheck(checkCtx); err != nil {
			dbStatus.Healthy = false
			dbStatus.Error = err.Error()
			response.Status = "degraded"
		}
		cancel()
		response.Database = dbStatus
	}

	if h.jobs != nil {
		response.ScheduledJobs = h.jobs.JobCount()
	}

	if h.marketData != nil {
		response.MarketData = h.marketData.Status()
		if response.MarketData.DegradedMode {
			response.Status = "degraded"
		}
	}

	return response
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := h.GetSystemStatusSnapshot(r.Context())
	if response.Status != "healthy" {
		h.log.Warn().Msg("System status collected with warnings")
	}

	h.writeJSON(w, response)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
