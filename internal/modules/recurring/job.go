package recurring

import (
	"context"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// Job fires due rules of every user on the scheduler's cron
type Job struct {
	base.JobBase
	processor *Processor
	now       func() domain.Date
	log       zerolog.Logger
}

// NewJob creates the recurring rules job
func NewJob(processor *Processor, log zerolog.Logger) *Job {
	return &Job{
		processor: processor,
		now:       domain.Today,
		log:       log.With().Str("job", "recurring_rules").Logger(),
	}
}

// Run processes every user's due rules
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := j.processor.ProcessDue(ctx, "", j.now())
	if result != nil && result.RulesFired > 0 {
		j.log.Debug().Int("fired", result.RulesFired).Msg("Recurring job finished")
	}
	return err
}

// Name returns the job name for scheduling and logging.
func (j *Job) Name() string {
	return "recurring_rules"
}
