// Package base provides base implementation for scheduler jobs.
package base

import (
	"sync"
	"time"
)

// RunStatus is the outcome of the most recent execution of a job.
type RunStatus struct {
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int64         `json:"runs"`
}

// JobBase records run outcomes. Jobs embed it so the scheduler can report
// their status without knowing the concrete type.
type JobBase struct {
	mu     sync.Mutex
	status RunStatus
}

// RecordRun stores the outcome of one execution.
func (j *JobBase) RecordRun(started time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status.LastRun = started
	j.status.LastDuration = time.Since(started)
	j.status.Runs++
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	}
}

// Status returns a copy of the latest run outcome.
func (j *JobBase) Status() RunStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
