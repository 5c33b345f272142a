package services

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
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/schema"
)

// QueryRunner executes one generated statement. datasource.QueryExecutor satisfies it.
type QueryRunner interface {
	Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error)
}

// QueryAuditor records security-relevant pipeline outcomes. *audit.SecurityAuditor satisfies it.
type QueryAuditor interface {
	LogRejected(ctx context.Context, result *models.QueryResult)
	LogExecution(ctx context.Context, result *models.QueryResult)
}

// OrchestratorConfig tunes the interactive pipeline.
type OrchestratorConfig struct {
	ValidationEnabled bool
	// MaxQueryTime bounds statement execution. Zero means no extra bound.
	MaxQueryTime time.Duration
	// SummaryMaxRows is exclusive: a summary runs only for 0 < rows < SummaryMaxRows.
	SummaryMaxRows int
	PersistResults bool
}

// QueryOrchestrator drives a question through generation, validation,
// execution and summary.
type QueryOrchestrator interface {
	// Process never returns an error. Stage failures are recorded on the
	// result's Status, ErrorKind and ErrorMessage.
	Process(ctx context.Context, req models.QueryRequest) *models.QueryResult

	// RunIntegrityCheck runs the integrity checks and persists their report.
	RunIntegrityCheck(ctx context.Context) (*IntegrityOutcome, error)
}

type queryOrchestrator struct {
	catalog   *schema.Holder
	generator QueryGenerator
	validator QueryValidator
	runner    QueryRunner
	insights  InsightGenerator
	reports   ReportService
	integrity IntegrityService
	auditor   QueryAuditor
	cfg       OrchestratorConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewQueryOrchestrator(
	catalog *schema.Holder,
	generator QueryGenerator,
	validator QueryValidator,
	runner QueryRunner,
	insights InsightGenerator,
	reports ReportService,
	integrity IntegrityService,
	auditor QueryAuditor,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) QueryOrchestrator {
	return &queryOrchestrator{
		catalog:   catalog,
		generator: generator,
		validator: validator,
		runner:    runner,
		insights:  insights,
		reports:   reports,
		integrity: integrity,
		auditor:   auditor,
		cfg:       cfg,
		logger:    logger.Named("query-orchestrator"),
		now:       time.Now,
	}
}

var _ QueryOrchestrator = (*queryOrchestrator)(nil)

func (o *queryOrchestrator) Process(ctx context.Context, req models.QueryRequest) *models.QueryResult {
	started := o.now()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = started
	}

	domain := schema.InferDomain(req.Text)
	result := &models.QueryResult{
		ID:       uuid.New(),
		Request:  req,
		Domain:   string(domain),
		Status:   models.QueryStatusPending,
		Warnings: []string{},
	}

	o.run(ctx, req, domain, result)

	result.CompletedAt = o.now()
	result.DurationMs = result.CompletedAt.Sub(started).Milliseconds()

	o.logger.Info("Query processed",
		zap.String("query_id", result.ID.String()),
		zap.String("domain", result.Domain),
		zap.String("status", string(result.Status)),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Int("rows", result.RowCount),
		zap.Int64("duration_ms", result.DurationMs))

	o.audit(ctx, result)
	if o.cfg.PersistResults || req.Persist {
		o.persist(ctx, result)
	}
	return result
}

// audit records vetoes and every statement that reached the database.
func (o *queryOrchestrator) audit(ctx context.Context, result *models.QueryResult) {
	if o.auditor == nil {
		return
	}
	switch {
	case result.Status == models.QueryStatusValidationFailed:
		o.auditor.LogRejected(ctx, result)
	case result.Status == models.QueryStatusSuccess, result.ErrorKind == apperrors.KindExecutionFailed:
		o.auditor.LogExecution(ctx, result)
	}
}

func (o *queryOrchestrator) run(ctx context.Context, req models.QueryRequest, domain schema.Domain, result *models.QueryResult) {
	schemaContext := o.catalog.Load().ContextFor(domain)

	sqlQuery, err := o.generator.Generate(ctx, req.Text, schemaContext)
	if err != nil {
		o.fail(result, err)
		return
	}
	result.GeneratedSQL = sqlQuery

	var verdict models.ValidationVerdict
	if req.Validate && o.cfg.ValidationEnabled {
		verdict = o.validator.Validate(ctx, sqlQuery, schemaContext)
	} else {
		// the deterministic rules always run, even when the judge is skipped
		verdict = o.validator.Inspect(sqlQuery)
	}
	result.Validation = &verdict
	if !verdict.Valid {
		result.Status = models.QueryStatusValidationFailed
		result.ErrorKind = apperrors.KindValidationRejected
		result.ErrorMessage = fmt.Sprintf("%s: %v", apperrors.ErrValidationRejected, verdict.Issues)
		o.logger.Warn("Query rejected by validation",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.Strings("issues", verdict.Issues),
			zap.String("risk_level", string(verdict.RiskLevel)))
		return
	}

	execCtx := ctx
	if o.cfg.MaxQueryTime > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, o.cfg.MaxQueryTime)
		defer cancel()
	}

	res, err := o.runner.Query(execCtx, sqlQuery, 0)
	if err != nil {
		o.fail(result, err)
		return
	}
	result.Columns = res.Columns
	result.Rows = res.Rows
	result.RowCount = res.RowCount
	if res.Truncated {
		result.Warnings = append(result.Warnings, fmt.Sprintf("result truncated to %d rows", res.RowCount))
	}

	if o.insights != nil && res.RowCount > 0 && res.RowCount < o.cfg.SummaryMaxRows {
		summary, err := o.insights.Summarize(ctx, req.Text, res.Rows, res.RowCount)
		if err != nil {
			result.Warnings = append(result.Warnings, string(apperrors.KindSummarizationDegraded))
		} else {
			result.Summary = summary
		}
	}

	result.Status = models.QueryStatusSuccess
}

func (o *queryOrchestrator) fail(result *models.QueryResult, err error) {
	result.Status = models.QueryStatusError
	result.ErrorKind = apperrors.KindOf(err)
	result.ErrorMessage = err.Error()
	o.logger.Error("Query pipeline failed",
		zap.String("query_id", result.ID.String()),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.String("error", logging.SanitizeError(err)))
}

func (o *queryOrchestrator) persist(ctx context.Context, result *models.QueryResult) {
	if o.reports == nil {
		return
	}
	report, err := NewQueryReport(result)
	if err == nil {
		err = o.reports.Save(ctx, report)
	}
	if err != nil {
		o.logger.Error("Query result not persisted",
			zap.String("query_id", result.ID.String()),
			zap.Error(err))
	}
}

func (o *queryOrchestrator) RunIntegrityCheck(ctx context.Context) (*IntegrityOutcome, error) {
	return o.integrity.RunAndReport(ctx)
}
