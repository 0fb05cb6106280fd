package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk thresholds in bytes
const (
	criticalFreeBytes = 500 << 20
	lowFreeBytes      = 5 << 30
)

// DiskUsageFunc reports usage of the filesystem holding path
type DiskUsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// MaintenanceJob checks free disk space under the data directory and logs
// database sizes so growth shows up in the logs.
type MaintenanceJob struct {
	base.JobBase
	dataDir   string
	databases []*database.DB
	usage     DiskUsageFunc
	log       zerolog.Logger
}

// NewMaintenanceJob creates the daily maintenance job
func NewMaintenanceJob(dataDir string, databases []*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		dataDir:   dataDir,
		databases: databases,
		usage:     disk.UsageWithContext,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run fails only when free space is critically low
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	for _, db := range j.databases {
		if db == nil {
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}
		j.log.Info().
			Str("database", db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database size")
	}
	return nil
}

func (j *MaintenanceJob) checkDiskSpace(ctx context.Context) error {
	usage, err := j.usage(ctx, j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case usage.Free < criticalFreeBytes:
		j.log.Error().Float64("free_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free under %s", freeGB, j.dataDir)
	case usage.Free < lowFreeBytes:
		j.log.Warn().Float64("free_gb", freeGB).Float64("used_percent", usage.UsedPercent).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}
