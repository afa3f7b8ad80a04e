package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dispatch-service/internal/config"
	"dispatch-service/internal/db"
	"dispatch-service/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the directory schema in PostgreSQL",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Directory.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate needs DIRECTORY_DRIVER=%s, got %q", config.DriverPostgres, cfg.Directory.Driver)
	}
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	store, err := db.New(ctx, cfg.DB.DSN, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Infof("Directory schema is up to date")
	return nil
}
