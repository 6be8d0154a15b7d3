package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/Alexander4822/Spielwiese/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DatabaseMaintenanceJob keeps the local sqlite price store healthy
type DatabaseMaintenanceJob struct {
	db      *database.DB
	dataDir string
	log     zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new maintenance job for db, checking free space under dataDir
func NewDatabaseMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:      db,
		dataDir: dataDir,
		log:     log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Run checks integrity, truncates the WAL, reclaims free pages and reports disk space
func (j *DatabaseMaintenanceJob) Run() error {
	j.log.Info().Str("database", j.db.Name()).Msg("Starting database maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Integrity check failed")
		return fmt.Errorf("maintenance of %s: %w", j.db.Name(), err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical, the next checkpoint will catch up
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
	}

	if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA incremental_vacuum"); err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Incremental vacuum failed")
	}

	j.checkDiskSpace()

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed")

	return nil
}

// Name returns the job name for scheduler
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

func (j *DatabaseMaintenanceJob) checkDiskSpace() {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < 1.0 {
		j.log.Warn().
			Float64("available_gb", availableGB).
			Float64("used_percent", usage.UsedPercent).
			Msg("Disk space running low")
	}
}
