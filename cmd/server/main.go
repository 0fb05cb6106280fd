// Package main is the entry point for the personal finance service.
//
// Startup sequence:
// 1. Load configuration from the environment (.env supported)
// 2. Initialize logging
// 3. Wire databases, repositories, services and jobs via the DI container
// 4. Start the HTTP server and the job scheduler
// 5. Wait for a shutdown signal and stop gracefully
//
// Data lives in three sqlite databases under FINANCE_DATA_DIR:
// - ledger.db: accounts, categories, transactions, investments, projects, recurring rules
// - config.db: global settings and per-user preferences
// - client_data.db: cached exchange rates and document recognition results
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/di"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/server"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting finance service")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close databases")
		}
	}()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()

	// Catch up on rules that fell due while the service was down
	go func() {
		if err := container.Scheduler.RunNow(jobs.Recurring); err != nil {
			log.Error().Err(err).Msg("Startup recurring run failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
