package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/repositories"
)

// ReportService provides operations for persisted reports.
type ReportService interface {
	// Save appends report. Failures wrap apperrors.ErrPersistenceFailed.
	Save(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)
	Latest(ctx context.Context, kind string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)
}

type reportService struct {
	repo   repositories.ReportRepository
	logger *zap.Logger
}

func NewReportService(repo repositories.ReportRepository, logger *zap.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger.Named("report-service"),
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) Save(ctx context.Context, report *models.Report) error {
	if report.Title == "" {
		return fmt.Errorf("%w: report title is required", apperrors.ErrPersistenceFailed)
	}
	if report.Kind == "" {
		return fmt.Errorf("%w: report kind is required", apperrors.ErrPersistenceFailed)
	}

	if err := s.repo.Create(ctx, report); err != nil {
		s.logger.Error("Failed to save report",
			zap.String("kind", report.Kind),
			zap.String("title", report.Title),
			zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrPersistenceFailed, err)
	}

	s.logger.Info("Report saved",
		zap.String("report_id", report.ID.String()),
		zap.String("kind", report.Kind),
		zap.String("severity", string(report.Severity)))
	return nil
}

func (s *reportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reportService) Latest(ctx context.Context, kind string) (*models.Report, error) {
	return s.repo.Latest(ctx, kind)
}

func (s *reportService) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: invalid limit %d", apperrors.ErrInvalidInput, filter.Limit)
	}

	reports, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list reports",
			zap.String("kind", filter.Kind),
			zap.Error(err))
		return nil, err
	}
	return reports, nil
}
