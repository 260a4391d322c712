package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	cartpostgres "github.com/frahmantamala/mollie-checkout/internal/cart/postgres"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo cart",
	Long:  `Seed the database with a demo cart that storefront developers can create payment intents for.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, gormDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if err := clearSeedData(gormDB); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared transactions, orders and carts")
		}

		customer := "demo-customer"
		demo := &cart.Cart{
			CustomerID: &customer,
			Currency:   cfg.Payment.Currency,
			Lines: []cart.CartLine{
				{Description: "Espresso beans 1kg", UnitPrice: 2495, Quantity: 1},
				{Description: "Ceramic cup", UnitPrice: 850, Quantity: 2},
			},
		}

		if err := cartpostgres.NewCartRepository(gormDB).Create(context.Background(), demo); err != nil {
			log.Fatalf("failed to insert demo cart: %v", err)
		}

		fmt.Printf("Seeded cart %d with total %d %s\n", demo.ID, demo.Total(), demo.Currency)
	},
}

// clearSeedData empties the SQL ledger, orders and carts, children first.
func clearSeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"transactions", "orders", "cart_lines", "carts"} {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
