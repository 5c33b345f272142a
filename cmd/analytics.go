package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

func newAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Score patients and treatments",
	}

	var (
		tier   string
		limit  int
		cohort string
	)

	churn := analyticsCmd("churn", "List patients at churn risk", func(ctx context.Context, svc services.AnalyticsService) (any, error) {
		return svc.ChurnRisk(ctx, tier)
	})
	churn.Flags().StringVar(&tier, "tier", "", "keep only one risk tier (CRITICAL, HIGH, MEDIUM, LOW)")

	ltv := analyticsCmd("ltv", "List patients by projected lifetime value", func(ctx context.Context, svc services.AnalyticsService) (any, error) {
		return svc.LTV(ctx, limit)
	})
	ltv.Flags().IntVar(&limit, "limit", services.DefaultListLimit, "maximum patients to list")

	cohorts := analyticsCmd("cohorts", "Group patients by first-visit period", func(ctx context.Context, svc services.AnalyticsService) (any, error) {
		return svc.Cohorts(ctx, cohort)
	})
	cohorts.Flags().StringVar(&cohort, "by", "month", "cohort period: month or quarter")

	cmd.AddCommand(
		churn,
		ltv,
		cohorts,
		analyticsCmd("roi", "Score treatment profitability", func(ctx context.Context, svc services.AnalyticsService) (any, error) {
			return svc.ROIReport(ctx)
		}),
		analyticsCmd("dashboard", "Compute churn, LTV and ROI summaries together", func(ctx context.Context, svc services.AnalyticsService) (any, error) {
			return svc.Dashboard(ctx)
		}),
	)
	return cmd
}

func analyticsCmd(use, short string, fn func(ctx context.Context, svc services.AnalyticsService) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
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

			out, err := fn(cmd.Context(), a.analytics)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}
