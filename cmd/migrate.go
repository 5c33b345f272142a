package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending report-store migrations",
		Long:  "Applies the embedded migrations to the PostgreSQL report database (reports.store=postgres).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.OpenMigrationDB(cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()

			return database.RunMigrations(db, logger)
		},
	}
}
