package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted ledger model in dependency order.
func Models() []any {
	return []any{
		&agencydomain.Agency{},
		&adaccountdomain.AdAccount{},
		&rechargedomain.AdRecharge{},
		&consumptiondomain.AdConsumption{},
		&rebatedomain.RebateReceivable{},
		&billdomain.MonthlyBill{},
		&ledgerdomain.LedgerEntry{},
		&settlementdomain.SettlementBatch{},
	}
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the ledger tables from the models for mysql and sqlite.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
