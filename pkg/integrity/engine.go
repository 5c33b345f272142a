package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// Counter runs a single-value query. datasource.QueryExecutor satisfies it.
type Counter interface {
	QueryScalar(ctx context.Context, sqlQuery string, params ...any) (any, error)
}

// Engine runs a compiled catalog.
type Engine struct {
	counter Counter
	checks  []Check
	version string
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine compiles catalog for dialect.
func NewEngine(counter Counter, dialect datasource.Dialect, catalog *Catalog, params Params, logger *zap.Logger) (*Engine, error) {
	checks, err := catalog.Compile(dialect, params)
	if err != nil {
		return nil, err
	}
	return &Engine{
		counter: counter,
		checks:  checks,
		version: catalog.Version,
		logger:  logger.Named("integrity"),
		now:     time.Now,
	}, nil
}

// Checks returns the compiled checks in catalog order.
func (e *Engine) Checks() []Check {
	out := make([]Check, len(e.checks))
	copy(out, e.checks)
	return out
}

// Run executes every check in order. A check that cannot execute is
// recorded as a warning and excluded from the counts; it never stops the run.
func (e *Engine) Run(ctx context.Context) *models.IntegrityRun {
	run := &models.IntegrityRun{
		ID:             uuid.New(),
		StartedAt:      e.now(),
		CatalogVersion: e.version,
		Findings:       make([]models.IntegrityFinding, 0, len(e.checks)),
		CriticalIssues: make([]models.IntegrityFinding, 0),
	}

	e.logger.Info("Starting integrity checks", zap.Int("checks", len(e.checks)))

	for _, check := range e.checks {
		count, err := e.count(ctx, check)
		if err != nil {
			e.logger.Warn("Integrity check could not execute",
				zap.String("check", check.Name),
				zap.String("error", logging.SanitizeError(err)))
			run.Warnings = append(run.Warnings, models.CheckWarning{
				TestName: check.Name,
				Error:    err.Error(),
			})
			continue
		}

		finding := models.IntegrityFinding{
			TestName:    check.Name,
			Category:    check.Category,
			Severity:    check.Severity,
			MetricCount: count,
			Status:      models.FindingPassed,
			Description: check.Description,
		}
		if count > check.Threshold {
			finding.Status = models.FindingFailed
			run.Failed++
			e.logger.Warn("Integrity check failed",
				zap.String("check", check.Name),
				zap.String("severity", string(check.Severity)),
				zap.Int64("count", count))
		} else {
			run.Passed++
			e.logger.Debug("Integrity check passed", zap.String("check", check.Name))
		}

		run.Findings = append(run.Findings, finding)
		if finding.IsCritical() {
			run.CriticalIssues = append(run.CriticalIssues, finding)
		}
	}

	run.Total = run.Passed + run.Failed
	run.Status = StatusOf(run)
	run.FinishedAt = e.now()

	e.logger.Info("Integrity checks completed",
		zap.String("status", string(run.Status)),
		zap.Int("passed", run.Passed),
		zap.Int("failed", run.Failed),
		zap.Int("critical", len(run.CriticalIssues)),
		zap.Int("warnings", len(run.Warnings)))
	return run
}

func (e *Engine) count(ctx context.Context, check Check) (int64, error) {
	v, err := e.counter.QueryScalar(ctx, check.SQL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrCheckExecution, err)
	}
	n, err := datasource.ToInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrCheckExecution, err)
	}
	return n, nil
}

// StatusOf derives the overall verdict: FAILED on any critical issue,
// WARNING on any other failure, PASSED otherwise.
func StatusOf(run *models.IntegrityRun) models.RunStatus {
	switch {
	case len(run.CriticalIssues) > 0:
		return models.RunFailed
	case run.Failed > 0:
		return models.RunWarning
	default:
		return models.RunPassed
	}
}

// RecommendedActions turns a run into follow-up actions for the report.
func RecommendedActions(run *models.IntegrityRun) []string {
	var actions []string

	if len(run.CriticalIssues) > 0 {
		actions = append(actions,
			"CRITICAL: review the orphaned and invalid records found",
			"Run cleanup queries for the invalid foreign keys")
	}
	if run.Failed > run.Passed {
		actions = append(actions,
			"WARNING: more than 50% of checks failed",
			"Review the overall integrity of the database")
	}
	if len(run.Warnings) > 0 {
		actions = append(actions, fmt.Sprintf("%d check(s) could not run; verify the schema they reference", len(run.Warnings)))
	}
	if len(actions) == 0 {
		actions = append(actions, "No action required: all checks passed")
	}
	return actions
}
