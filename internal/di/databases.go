package di

import (
	"fmt"
	"path/filepath"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/rs/zerolog"
)

type databaseSpec struct {
	name    string
	profile database.DatabaseProfile
	target  **database.DB
}

// InitializeDatabases opens the three databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	specs := []databaseSpec{
		// Maximum durability for the financial record
		{name: "ledger", profile: database.ProfileLedger, target: &container.LedgerDB},
		{name: "config", profile: database.ProfileStandard, target: &container.ConfigDB},
		// Reproducible from the network; speed over durability
		{name: "client_data", profile: database.ProfileCache, target: &container.ClientDataDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}
		*spec.target = db

		if err := db.Migrate(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}
