package main

import (
	"errors"

	"github.com/spf13/cobra"

	"signup/internal/platform/logger"
	"signup/internal/platform/postgres"
	"signup/internal/registration/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("database.url is required to migrate")
		}
		log := logger.New(cfg.Log.Level, cfg.Log.Format)

		db, err := postgres.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(db, store.Migrations, store.MigrationsDir); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
