package main

import (
	"github.com/diarist/server/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, _, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := persistence.Open(&cfg.Database, persistence.GormLogLevel(cfg.Log.Level))
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := persistence.AutoMigrate(db); err != nil {
				log.Error("Migration failed", zap.Error(err))
				return err
			}
			log.Info("Database schema is up to date", zap.String("database", cfg.Database.Type))
			return nil
		},
	}
}
