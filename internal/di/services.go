package di

import (
	"context"
	"fmt"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clients/exchangerate"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clients/gemini"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
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
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services. Order follows the
// dependency graph: settings and currency first, the ledger next, then the
// modules that read the ledger.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.AccountRepo == nil {
		return fmt.Errorf("repositories are not initialized")
	}

	// Global settings override environment values
	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		return fmt.Errorf("failed to apply settings overrides: %w", err)
	}

	container.EventBus = events.NewBus(log)
	container.Scheduler = scheduler.New(log)
	container.Authenticator = auth.NewAuthenticator(cfg.JWTSecret, cfg.DevMode, log)

	// Clients
	container.ExchangeRateClient = exchangerate.NewClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateAPIKey, container.ClientDataRepo, log)
	if cfg.GeminiAPIKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		recognizer, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, log,
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithCache(container.ClientDataRepo),
		)
		cancel()
		if err != nil {
			return err
		}
		container.Recognizer = recognizer
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, document recognition disabled")
	}

	bus := container.EventBus
	ledger := container.LedgerDB.Conn()

	container.SettingsService = settings.NewService(container.UserSettingsRepo, bus, cfg.BaseCurrency, cfg.DefaultAccountID, log)
	container.CurrencyService = currency.NewService(container.ExchangeRateClient, log)

	container.AccountService = accounts.NewService(ledger, container.AccountRepo, container.SettingsService, bus, log)
	container.CategoryService = categories.NewService(ledger, container.CategoryRepo, bus, log)

	container.TransactionService = transactions.NewService(
		ledger,
		container.TransactionRepo,
		container.CategoryRepo,
		container.AccountService,
		container.Recognizer,
		bus,
		log,
	)
	container.InvestmentService = investments.NewService(
		ledger,
		container.InvestmentRepo,
		container.TransactionService,
		container.AccountService,
		bus,
		log,
	)
	container.ProjectService = projects.NewService(
		container.ProjectRepo,
		container.TransactionRepo,
		container.CurrencyService,
		container.SettingsService,
		bus,
		log,
	)

	container.RecurringProcessor = recurring.NewProcessor(ledger, container.RecurringRepo, container.TransactionService, bus, log)
	container.RecurringService = recurring.NewService(container.RecurringRepo, container.RecurringProcessor, container.TransactionRepo, bus, log)

	container.ReportService = reports.NewService(
		container.AccountRepo,
		container.TransactionRepo,
		container.InvestmentRepo,
		container.ProjectRepo,
		container.RecurringRepo,
		container.CurrencyService,
		container.SettingsService,
		log,
	)

	if cfg.Backup != nil && cfg.Backup.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		snapshots := []reliability.Snapshotter{container.LedgerDB, container.ConfigDB}
		container.BackupService = reliability.NewBackupService(store, snapshots, cfg.DataDir, log)
	}

	log.Info().Msg("Services initialized")
	return nil
}
