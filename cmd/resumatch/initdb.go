package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/resumatch/internal/repository/sqlite"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the users table and reset the resumes table",
	Long: `Create the users table if it is missing, then DROP and recreate the
resumes table. Every stored résumé is deleted; accounts are kept.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log.Level, cfg.Log.JSON)

		if err := ensureDir(cfg.Database.Path); err != nil {
			return err
		}

		db, err := sqliteRepo.Initialize(cmd.Context(), cfg.Database.Path)
		if err != nil {
			logger.Error("database initialisation failed", slog.String("error", err.Error()))
			return err
		}
		defer db.Close()

		logger.Info("database initialised", slog.String("database", cfg.Database.Path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
