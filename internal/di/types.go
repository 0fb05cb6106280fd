// Package di wires databases, repositories, services and jobs.
//
// The Container is the single source of truth for service instances. It is
// created by Wire and handed to the HTTP server.
package di

import (
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clients/exchangerate"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/reports"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/settings"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/reliability"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	LedgerDB     *database.DB // accounts, categories, transactions, investments, projects, rules
	ConfigDB     *database.DB // global settings and per-user preferences
	ClientDataDB *database.DB // cached API responses

	// Infrastructure
	EventBus      *events.Bus
	Scheduler     *scheduler.Scheduler
	Authenticator *auth.Authenticator

	// Clients
	ClientDataRepo     *clientdata.Repository
	ExchangeRateClient *exchangerate.Client
	Recognizer         transactions.Recognizer // nil without a Gemini key

	// Repositories
	SettingsRepo     *settings.Repository
	UserSettingsRepo *settings.UserRepository
	AccountRepo      *accounts.Repository
	CategoryRepo     *categories.Repository
	TransactionRepo  *transactions.Repository
	InvestmentRepo   *investments.Repository
	ProjectRepo      *projects.Repository
	RecurringRepo    *recurring.Repository

	// Services
	SettingsService    *settings.Service
	CurrencyService    *currency.Service
	AccountService     *accounts.Service
	CategoryService    *categories.Service
	TransactionService *transactions.Service
	InvestmentService  *investments.Service
	ProjectService     *projects.Service
	RecurringProcessor *recurring.Processor
	RecurringService   *recurring.Service
	ReportService      *reports.Service
	BackupService      *reliability.BackupService // nil when backups are disabled
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	Recurring      *recurring.Job
	CacheCleanup   *clientdata.CleanupJob
	CheckDatabases *scheduler.CheckDatabasesJob
	WALCheckpoints *scheduler.CheckWALCheckpointsJob
	Maintenance    *reliability.MaintenanceJob
	Backup         *reliability.BackupJob // nil when backups are disabled
}

// Databases returns the open databases in a stable order
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.LedgerDB, c.ConfigDB, c.ClientDataDB}
}

// Close stops the scheduler and closes every database
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	var firstErr error
	for _, db := range c.Databases() {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
