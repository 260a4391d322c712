package cmd

import (
	"context"
	"log"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/mollie-checkout/db/migrations"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations under db/migrations",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// sqlite is a local development store; its schema comes from the models
	if cfg.Database.Driver == "sqlite" {
		_, gormDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("sqlite: failed to open DB: %v\n", err)
		}
		if err := gormDB.AutoMigrate(&cart.Cart{}, &cart.CartLine{}, &order.Order{}, &transaction.Transaction{}); err != nil {
			log.Fatalf("sqlite automigrate: %v", err)
		}
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose dialect: %v", err)
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
