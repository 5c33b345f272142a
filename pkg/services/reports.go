package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// WeeklyAnalytics is the payload of the weekly analytics report.
type WeeklyAnalytics struct {
	ReportType string             `json:"report_type"`
	Timestamp  time.Time          `json:"timestamp"`
	Churn      models.ChurnReport `json:"churn"`
	LTV        models.LTVReport   `json:"ltv"`
	ROI        models.ROIReport   `json:"roi"`
}

// MonthlyAnalytics extends the weekly payload with cohorts and an integrity snapshot.
type MonthlyAnalytics struct {
	WeeklyAnalytics
	Cohorts   []models.Cohort      `json:"cohorts"`
	Integrity *models.IntegrityRun `json:"integrity,omitempty"`
}

// WeekOfYear numbers weeks from the first Sunday of the year, so days
// before it fall in week 0.
func WeekOfYear(t time.Time) int {
	return (t.YearDay() - 1 + 7 - int(t.Weekday())) / 7
}

// NewIntegrityReport renders an integrity run as a daily check report.
func NewIntegrityReport(run *models.IntegrityRun) (*models.Report, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal integrity run: %w", err)
	}

	severity := models.SeverityInfo
	if len(run.CriticalIssues) > 0 {
		severity = models.SeverityCritical
	}

	return &models.Report{
		Kind:               models.ReportKindIntegrity,
		Category:           models.CategoryDailyCheck,
		Severity:           severity,
		Title:              fmt.Sprintf("Daily Integrity Check - %s", run.StartedAt.Format("2006-01-02")),
		Description:        fmt.Sprintf("Tests run: %d, Failed: %d", run.Total, run.Failed),
		Payload:            payload,
		RecommendedActions: integrity.RecommendedActions(run),
		CreatedAt:          run.FinishedAt,
	}, nil
}

// NewWeeklyReport renders the combined analytics of one week.
func NewWeeklyReport(weekly WeeklyAnalytics) (*models.Report, error) {
	weekly.ReportType = models.CategoryWeeklyAnalytics
	payload, err := json.Marshal(weekly)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weekly analytics: %w", err)
	}

	return &models.Report{
		Kind:               models.ReportKindAnalytics,
		Category:           models.CategoryWeeklyAnalytics,
		Severity:           models.SeverityInfo,
		Title:              fmt.Sprintf("Weekly Analytics - %d-W%02d", weekly.Timestamp.Year(), WeekOfYear(weekly.Timestamp)),
		Description:        "Comprehensive weekly analytics report",
		Payload:            payload,
		RecommendedActions: WeeklyActions(weekly),
		CreatedAt:          weekly.Timestamp,
	}, nil
}

// WeeklyActions lists the follow-ups derived from the weekly numbers.
func WeeklyActions(weekly WeeklyAnalytics) []string {
	var actions []string
	if critical := weekly.Churn.TierCounts[models.TierCritical]; critical > 0 {
		actions = append(actions, fmt.Sprintf("URGENT: contact %d patients at critical churn risk", critical))
	}
	actions = append(actions, fmt.Sprintf("VIP programme: keep engagement with %d VIP patients", weekly.LTV.VIPCount))
	if low := len(weekly.ROI.LowPerformers); low > 0 {
		actions = append(actions, fmt.Sprintf("Review prices and costs of %d low-ROI treatments", low))
	}
	return actions
}

// NewMonthlyReport renders the monthly report. A critical finding in the
// integrity snapshot raises the report to critical.
func NewMonthlyReport(monthly MonthlyAnalytics) (*models.Report, error) {
	monthly.ReportType = models.CategoryMonthlyReport
	payload, err := json.Marshal(monthly)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal monthly analytics: %w", err)
	}

	severity := models.SeverityInfo
	actions := WeeklyActions(monthly.WeeklyAnalytics)
	if monthly.Integrity != nil {
		if len(monthly.Integrity.CriticalIssues) > 0 {
			severity = models.SeverityCritical
		}
		actions = append(actions, integrity.RecommendedActions(monthly.Integrity)...)
	}

	return &models.Report{
		Kind:               models.ReportKindMonthly,
		Category:           models.CategoryMonthlyReport,
		Severity:           severity,
		Title:              fmt.Sprintf("Monthly Report - %s", monthly.Timestamp.Format("2006-01")),
		Description:        fmt.Sprintf("Monthly analytics, %d cohorts and data integrity snapshot", len(monthly.Cohorts)),
		Payload:            payload,
		RecommendedActions: actions,
		CreatedAt:          monthly.Timestamp,
	}, nil
}

// NewQueryReport renders a terminal pipeline result. Validation issues
// become the recommended actions so a rejected query explains itself.
func NewQueryReport(result *models.QueryResult) (*models.Report, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query result: %w", err)
	}

	report := &models.Report{
		Kind:               models.ReportKindQuery,
		Category:           models.CategoryInteractive,
		Severity:           models.SeverityInfo,
		Title:              "Query: " + logging.TruncateString(result.Request.Text, 200),
		Payload:            payload,
		RecommendedActions: []string{},
		CreatedAt:          result.CompletedAt,
	}

	switch result.Status {
	case models.QueryStatusSuccess:
		report.Description = fmt.Sprintf("Returned %d rows", result.RowCount)
	case models.QueryStatusValidationFailed:
		report.Severity = models.SeverityWarning
		report.Description = "Rejected by validation"
		if result.Validation != nil {
			report.RecommendedActions = append(report.RecommendedActions, result.Validation.Issues...)
		}
	default:
		report.Severity = models.SeverityWarning
		report.Description = fmt.Sprintf("%s: %s", result.ErrorKind, result.ErrorMessage)
	}
	return report, nil
}
