package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/di"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler"
)

// HostStats is a point-in-time reading of the host
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskFreeBytes uint64  `json:"disk_free_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
	Goroutines    int     `json:"goroutines"`
}

// DatabaseStatus describes one database
type DatabaseStatus struct {
	Stats   *database.Stats `json:"stats,omitempty"`
	Name    string          `json:"name"`
	Error   string          `json:"error,omitempty"`
	Healthy bool            `json:"healthy"`
}

// SystemStatus is the body of GET /api/system/status
type SystemStatus struct {
	StartedAt time.Time           `json:"started_at"`
	Host      HostStats           `json:"host"`
	Databases []DatabaseStatus    `json:"databases"`
	Jobs      []scheduler.JobInfo `json:"jobs"`
	Uptime    string              `json:"uptime"`
	Features  map[string]bool     `json:"features"`
}

// SystemHandlers serves operational endpoints
type SystemHandlers struct {
	container *di.Container
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system handlers
func NewSystemHandlers(container *di.Container, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/jobs", h.HandleJobs)
		r.Post("/jobs/{name}/run", h.HandleRunJob)
	})
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	status := SystemStatus{
		StartedAt: h.startedAt,
		Host:      h.hostStats(r.Context()),
		Databases: h.databaseStatus(r.Context()),
		Jobs:      h.container.Scheduler.Jobs(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Features: map[string]bool{
			"recognition": h.container.Recognizer != nil,
			"backups":     h.container.BackupService != nil,
		},
	}
	respond.OK(w, status)
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	jobs := h.container.Scheduler.Jobs()
	respond.JSON(w, http.StatusOK, jobs, map[string]any{"count": len(jobs)})
}

// HandleRunJob handles POST /api/system/jobs/{name}/run. The job runs
// synchronously and its outcome is returned.
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	name := chi.URLParam(r, "name")
	job, ok := h.container.Scheduler.Lookup(name)
	if !ok {
		respond.Error(w, h.log, domain.ErrNotFound)
		return
	}

	if err := h.container.Scheduler.RunNow(job); err != nil {
		respond.Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.OK(w, map[string]string{"job": name, "status": "completed"})
}

func (h *SystemHandlers) hostStats(ctx context.Context) HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	// A short sample keeps the endpoint responsive
	if percents, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, h.dataDir); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		stats.DiskFreeBytes = usage.Free
		stats.DiskPercent = usage.UsedPercent
	}

	return stats
}

func (h *SystemHandlers) databaseStatus(ctx context.Context) []DatabaseStatus {
	out := make([]DatabaseStatus, 0, 3)
	for _, db := range h.container.Databases() {
		if db == nil {
			continue
		}
		status := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.Conn().PingContext(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
		}
		if stats, err := db.GetStats(); err == nil {
			status.Stats = stats
		}
		out = append(out, status)
	}
	return out
}
