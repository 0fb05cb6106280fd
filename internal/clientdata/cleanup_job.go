package clientdata

import (
	"context"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
)

const cleanupTimeout = time.Minute

// CleanupJob purges expired rate tables and recognizer results.
type CleanupJob struct {
	base.JobBase
	repo        *Repository
	lastDeleted int64
	log         zerolog.Logger
}

// NewCleanupJob creates the cache cleanup job
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}

// LastDeleted is the number of rows the previous run removed.
func (j *CleanupJob) LastDeleted() int64 {
	return j.lastDeleted
}

// Run deletes every expired row across the cache tables.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	perTable, err := j.repo.DeleteAllExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup failed")
		return err
	}

	counts := zerolog.Dict()
	var total int64
	for table, n := range perTable {
		counts.Int64(table, n)
		total += n
	}
	j.lastDeleted = total

	event := j.log.Debug()
	if total > 0 {
		event = j.log.Info()
	}
	event.Dict("deleted", counts).Int64("total", total).Msg("Cache cleanup finished")
	return nil
}
