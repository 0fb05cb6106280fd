package di

import (
	"fmt"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/reliability"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed maintenance schedules (seconds field included)
const (
	checkDatabasesSchedule = "0 30 2 * * *"
	walCheckpointSchedule  = "0 0 * * * *"
	maintenanceSchedule    = "0 15 4 * * *"
)

type registration struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the background jobs and registers them with the
// scheduler. The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("services are not initialized")
	}

	instances := &JobInstances{
		Recurring:      recurring.NewJob(container.RecurringProcessor, log),
		CacheCleanup:   clientdata.NewCleanupJob(container.ClientDataRepo, log),
		CheckDatabases: scheduler.NewCheckDatabasesJob(container.Databases()...),
		WALCheckpoints: scheduler.NewCheckWALCheckpointsJob(container.Databases()...),
		Maintenance:    reliability.NewMaintenanceJob(cfg.DataDir, container.Databases(), log),
	}
	instances.CheckDatabases.SetLogger(log)
	instances.WALCheckpoints.SetLogger(log)

	registrations := []registration{
		{cfg.RecurringSchedule, instances.Recurring},
		{cfg.CacheCleanupSchedule, instances.CacheCleanup},
		{checkDatabasesSchedule, instances.CheckDatabases},
		{walCheckpointSchedule, instances.WALCheckpoints},
		{maintenanceSchedule, instances.Maintenance},
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.Retention, container.EventBus, log)
		registrations = append(registrations, registration{cfg.Backup.Schedule, instances.Backup})
	}

	for _, reg := range registrations {
		if err := container.Scheduler.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", reg.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(registrations)).Msg("Jobs registered")
	return instances, nil
}
