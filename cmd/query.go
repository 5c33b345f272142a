package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func newQueryCmd() *cobra.Command {
	var (
		noValidate bool
		persist    bool
	)
	cmd := &cobra.Command{
		Use:   `query "<question>"`,
		Short: "Answer a natural-language question against the clinic database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("question text is required")
			}

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

			result := a.orchestrator.Process(cmd.Context(), models.QueryRequest{
				Text:        text,
				RequestedAt: time.Now(),
				Validate:    !noValidate,
				RequestedBy: "cli",
				Persist:     persist,
			})
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.Succeeded() {
				return fmt.Errorf("query %s: %s", result.Status, result.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip the semantic validation step")
	cmd.Flags().BoolVar(&persist, "persist", false, "store the outcome as a query report")
	return cmd
}
