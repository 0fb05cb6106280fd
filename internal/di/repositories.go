package di

import (
	"fmt"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/settings"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil {
		return fmt.Errorf("databases are not initialized")
	}

	ledger := container.LedgerDB.Conn()
	configDB := container.ConfigDB.Conn()

	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	container.SettingsRepo = settings.NewRepository(configDB, log)
	container.UserSettingsRepo = settings.NewUserRepository(configDB, log)

	container.AccountRepo = accounts.NewRepository(ledger, log)
	container.CategoryRepo = categories.NewRepository(ledger, log)
	container.TransactionRepo = transactions.NewRepository(ledger, log)
	container.InvestmentRepo = investments.NewRepository(ledger, log)
	container.ProjectRepo = projects.NewRepository(ledger, log)
	container.RecurringRepo = recurring.NewRepository(ledger, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
