package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func newIntegrityCmd() *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Run the data-integrity checks once",
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

			var run *models.IntegrityRun
			if persist {
				outcome, err := a.integrity.RunAndReport(cmd.Context())
				if err != nil {
					return err
				}
				if err := printJSON(cmd, outcome); err != nil {
					return err
				}
				run = outcome.Run
			} else {
				run = a.integrity.Run(cmd.Context())
				if err := printJSON(cmd, run); err != nil {
					return err
				}
			}

			if len(run.CriticalIssues) > 0 {
				return fmt.Errorf("%d critical integrity issues found", len(run.CriticalIssues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store the run as an integrity report")
	return cmd
}
