// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"sync"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// statusReporter is implemented by jobs embedding base.JobBase.
type statusReporter interface {
	RecordRun(started time.Time, err error)
	Status() base.RunStatus
}

// JobInfo describes a registered job for status endpoints.
type JobInfo struct {
	Name     string         `json:"name"`
	Schedule string         `json:"schedule"`
	Next     time.Time      `json:"next"`
	Status   base.RunStatus `json:"status"`
}

type registration struct {
	job      Job
	schedule string
	entryID  cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.Mutex
	jobs []registration
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule (seconds field included)
// Schedule examples:
//   - "0 5 0 * * *"   - 00:05 every day
//   - "@hourly"       - Every hour
//   - "@every 30s"    - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		_ = s.execute(job)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, registration{job: job, schedule: schedule, entryID: id})
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

func (s *Scheduler) execute(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	started := time.Now()
	err := job.Run()
	if r, ok := job.(statusReporter); ok {
		r.RecordRun(started, err)
	}

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return err
	}

	s.log.Debug().
		Str("job", job.Name()).
		Dur("duration", time.Since(started)).
		Msg("Job completed")
	return nil
}

// Lookup finds a registered job by name
func (s *Scheduler) Lookup(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.jobs {
		if reg.job.Name() == name {
			return reg.job, true
		}
	}
	return nil, false
}

// Jobs lists registered jobs with their next run time and last outcome.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, reg := range s.jobs {
		info := JobInfo{
			Name:     reg.job.Name(),
			Schedule: reg.schedule,
			Next:     s.cron.Entry(reg.entryID).Next,
		}
		if r, ok := reg.job.(statusReporter); ok {
			info.Status = r.Status()
		}
		out = append(out, info)
	}
	return out
}
