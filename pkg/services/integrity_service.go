package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// IntegrityRunner executes the check catalog. *integrity.Engine satisfies it.
type IntegrityRunner interface {
	Run(ctx context.Context) *models.IntegrityRun
	Checks() []integrity.Check
}

// IntegrityOutcome is one integrity run together with its stored report.
type IntegrityOutcome struct {
	Run    *models.IntegrityRun `json:"run"`
	Report *models.Report       `json:"report"`
	// Persisted is false when the report could not be written; Run is still valid.
	Persisted    bool   `json:"persisted"`
	PersistError string `json:"persist_error,omitempty"`
}

// IntegrityService runs the integrity checks and records their reports.
type IntegrityService interface {
	Run(ctx context.Context) *models.IntegrityRun
	// RunAndReport runs the checks and persists the report. A persistence
	// failure is recorded on the outcome and logged, never returned.
	RunAndReport(ctx context.Context) (*IntegrityOutcome, error)
	Latest(ctx context.Context) (*models.Report, error)
	Checks() []integrity.Check
}

type integrityService struct {
	runner  IntegrityRunner
	reports ReportService
	logger  *zap.Logger
}

func NewIntegrityService(runner IntegrityRunner, reports ReportService, logger *zap.Logger) IntegrityService {
	return &integrityService{
		runner:  runner,
		reports: reports,
		logger:  logger.Named("integrity-service"),
	}
}

var _ IntegrityService = (*integrityService)(nil)

func (s *integrityService) Run(ctx context.Context) *models.IntegrityRun {
	return s.runner.Run(ctx)
}

func (s *integrityService) RunAndReport(ctx context.Context) (*IntegrityOutcome, error) {
	run := s.runner.Run(ctx)

	report, err := NewIntegrityReport(run)
	if err != nil {
		return nil, err
	}

	outcome := &IntegrityOutcome{Run: run, Report: report}
	if err := s.reports.Save(ctx, report); err != nil {
		s.logger.Error("Integrity report not persisted",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
		outcome.PersistError = err.Error()
		return outcome, nil
	}
	outcome.Persisted = true

	s.logger.Info("Integrity check completed",
		zap.String("status", string(run.Status)),
		zap.Int("passed", run.Passed),
		zap.Int("failed", run.Failed),
		zap.Int("critical", len(run.CriticalIssues)),
		zap.String("report_id", report.ID.String()))
	return outcome, nil
}

// Latest returns the newest integrity report, or nil when none exists yet.
func (s *integrityService) Latest(ctx context.Context) (*models.Report, error) {
	report, err := s.reports.Latest(ctx, models.ReportKindIntegrity)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *integrityService) Checks() []integrity.Check {
	return s.runner.Checks()
}
