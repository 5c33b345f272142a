package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity, the schema catalog and the last integrity run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.health.Status(cmd.Context())
			if err := printJSON(cmd, status); err != nil {
				return err
			}
			if status.Status != services.StatusHealthy {
				return fmt.Errorf("system is %s", status.Status)
			}
			return nil
		},
	}
}
