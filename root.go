package main

import (
	"log/slog"
	"os"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/logging"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "todo-api",
	Short:         "Todo list CRUD backend",
	Long:          `todo-api serves a JSON API for a todo list stored in MongoDB, PostgreSQL or SQLite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file (env CONFIG_FILE)")
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Setup(logging.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
	return cfg, logger, nil
}
