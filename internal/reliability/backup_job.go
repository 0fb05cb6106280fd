package reliability

import (
	"context"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
)

const backupTimeout = 15 * time.Minute

// BackupJob uploads a backup and prunes old ones on the scheduler's cron
type BackupJob struct {
	base.JobBase
	service   *BackupService
	retention int
	bus       *events.Bus
	log       zerolog.Logger
}

// NewBackupJob creates the backup job. retention is the number of archives kept.
func NewBackupJob(service *BackupService, retention int, bus *events.Bus, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:   service,
		retention: retention,
		bus:       bus,
		log:       log.With().Str("job", "backup").Logger(),
	}
}

// Run creates and uploads one archive. A failed prune is logged but does not
// fail the run.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	info, err := j.service.CreateAndUpload(ctx)
	if err != nil {
		j.bus.Emit("", "reliability", &events.ErrorEventData{Error: err.Error(), Job: j.Name()})
		return err
	}

	pruned, err := j.service.Prune(ctx, j.retention)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation incomplete")
	}

	j.bus.Emit("", "reliability", &events.BackupCompletedData{
		Key:       info.Key,
		SizeBytes: info.SizeBytes,
		Pruned:    pruned,
	})
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *BackupJob) Name() string {
	return "backup"
}
