package main

import (
	"github.com/spf13/cobra"

	"github.com/sql-assistant/server/internal/database"
	logx "github.com/sql-assistant/server/pkg/logger"
)

const defaultSeedDatabase = "retail_db"

var seedOpts = database.DefaultSeedOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and fill the demo retail database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg.MySQL
		if cfg.Database == "" {
			cfg.Database = defaultSeedDatabase
		}
		if err := database.Seed(cmd.Context(), cfg, seedOpts); err != nil {
			return err
		}
		logx.Info().
			Str("database", cfg.Database).
			Int("customers", seedOpts.Customers).
			Int("orders", seedOpts.Orders).
			Msg("Demo database ready")
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Customers, "customers", seedOpts.Customers, "number of customers to generate")
	f.IntVar(&seedOpts.Orders, "orders", seedOpts.Orders, "number of orders to generate")
	f.BoolVar(&seedOpts.Reset, "reset", seedOpts.Reset, "drop the demo tables before seeding")
	f.Int64Var(&seedOpts.RandSeed, "rand-seed", seedOpts.RandSeed, "random seed, 0 for a random dataset")
}
