package scheduler

import (
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// DefaultWALFrameThreshold is the WAL size, in frames, above which the job
// truncates the log.
const DefaultWALFrameThreshold = 1000

// CheckWALCheckpointsJob keeps WAL files from growing without bound
type CheckWALCheckpointsJob struct {
	base.JobBase
	log       zerolog.Logger
	databases []*database.DB
	threshold int
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(databases ...*database.DB) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log:       zerolog.Nop(),
		databases: databases,
		threshold: DefaultWALFrameThreshold,
	}
}

// SetLogger sets the logger for the job
func (j *CheckWALCheckpointsJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run checkpoints passively and truncates any log still above the threshold.
func (j *CheckWALCheckpointsJob) Run() error {
	checked := 0
	truncated := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// busy, log frames, checkpointed frames
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to check WAL checkpoint")
			continue
		}
		checked++

		if frames <= j.threshold {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
			continue
		}

		j.log.Warn().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL truncate failed")
			continue
		}
		truncated++
	}

	j.log.Info().
		Int("checked", checked).
		Int("truncated", truncated).
		Msg("WAL checkpoint check completed")

	return nil
}
