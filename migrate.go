package main

import (
	"context"
	"fmt"

	"todo-api/backend/internal/server"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the todos table or collection indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		store, closeStore, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore(context.Background())

		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s store: %w", cfg.Database.Driver, err)
		}

		logger.Info("migration complete", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
