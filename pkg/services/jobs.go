package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scoring"
)

// Scheduled job IDs.
const (
	JobDailyIntegrity  = "daily_integrity_check"
	JobWeeklyAnalytics = "weekly_analytics"
	JobMonthlyReports  = "monthly_reports"
)

var jobFailureTitles = map[string]string{
	JobDailyIntegrity:  "Daily integrity check failed",
	JobWeeklyAnalytics: "Weekly analytics failed",
	JobMonthlyReports:  "Monthly reports failed",
}

// JobRunner holds the bodies of the scheduled jobs. Each body persists its
// report and raises an alert on critical findings; a persistence failure
// is logged and does not fail the job.
type JobRunner struct {
	integrity IntegrityService
	analytics AnalyticsService
	reports   ReportService
	alerts    AlertService
	logger    *zap.Logger
}

func NewJobRunner(integrity IntegrityService, analytics AnalyticsService, reports ReportService, alerts AlertService, logger *zap.Logger) *JobRunner {
	return &JobRunner{
		integrity: integrity,
		analytics: analytics,
		reports:   reports,
		alerts:    alerts,
		logger:    logger.Named("jobs"),
	}
}

// DailyIntegrity runs the integrity checks and stores the daily report.
func (r *JobRunner) DailyIntegrity(ctx context.Context) error {
	outcome, err := r.integrity.RunAndReport(ctx)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}

	run := outcome.Run
	r.logger.Info("Daily integrity check completed",
		zap.Int("passed", run.Passed),
		zap.Int("failed", run.Failed),
		zap.Int("warnings", len(run.Warnings)))

	if len(run.CriticalIssues) > 0 {
		r.alertCritical(JobDailyIntegrity, run, outcome.Report)
	}
	return nil
}

// WeeklyAnalytics scores churn, value and profitability and stores the combined report.
func (r *JobRunner) WeeklyAnalytics(ctx context.Context) error {
	weekly, err := r.analytics.Weekly(ctx)
	if err != nil {
		return err
	}

	report, err := NewWeeklyReport(*weekly)
	if err != nil {
		return err
	}
	r.save(ctx, JobWeeklyAnalytics, report)
	return nil
}

// MonthlyReports stores the weekly numbers plus monthly cohorts and an integrity snapshot.
func (r *JobRunner) MonthlyReports(ctx context.Context) error {
	weekly, err := r.analytics.Weekly(ctx)
	if err != nil {
		return err
	}
	cohorts, err := r.analytics.Cohorts(ctx, scoring.CohortMonth)
	if err != nil {
		return fmt.Errorf("cohort analysis: %w", err)
	}
	run := r.integrity.Run(ctx)

	report, err := NewMonthlyReport(MonthlyAnalytics{
		WeeklyAnalytics: *weekly,
		Cohorts:         cohorts,
		Integrity:       run,
	})
	if err != nil {
		return err
	}
	r.save(ctx, JobMonthlyReports, report)

	if len(run.CriticalIssues) > 0 {
		r.alertCritical(JobMonthlyReports, run, report)
	}
	return nil
}

// Failed raises the failure alert of jobID. The scheduler calls it for
// returned errors and recovered panics.
func (r *JobRunner) Failed(jobID string, err error) {
	title, ok := jobFailureTitles[jobID]
	if !ok {
		title = fmt.Sprintf("Job %s failed", jobID)
	}
	r.alerts.Notify(models.Alert{
		JobID:     jobID,
		Severity:  models.SeverityCritical,
		Title:     title,
		Message:   err.Error(),
		CreatedAt: time.Now(),
	})
}

func (r *JobRunner) save(ctx context.Context, jobID string, report *models.Report) {
	if err := r.reports.Save(ctx, report); err != nil {
		r.logger.Error("Job report not persisted",
			zap.String("job_id", jobID),
			zap.String("title", report.Title),
			zap.Error(err))
		return
	}
	r.logger.Info("Job report saved",
		zap.String("job_id", jobID),
		zap.String("report_id", report.ID.String()))
}

func (r *JobRunner) alertCritical(jobID string, run *models.IntegrityRun, report *models.Report) {
	issues := make([]string, 0, len(run.CriticalIssues))
	for _, f := range run.CriticalIssues {
		issues = append(issues, fmt.Sprintf("%s: %d", f.TestName, f.MetricCount))
	}

	alert := models.Alert{
		JobID:     jobID,
		Severity:  models.SeverityCritical,
		Title:     fmt.Sprintf("CRITICAL: %d integrity issues found", len(run.CriticalIssues)),
		Message:   fmt.Sprintf("Tests run: %d, Failed: %d", run.Total, run.Failed),
		Issues:    issues,
		CreatedAt: time.Now(),
	}
	if report != nil && report.ID != uuid.Nil {
		alert.ReportID = report.ID.String()
	}
	r.alerts.Notify(alert)
}
