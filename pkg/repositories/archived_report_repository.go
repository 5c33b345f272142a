package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// ObjectArchive stores immutable JSON documents.
type ObjectArchive interface {
	PutJSON(ctx context.Context, key string, data []byte) (string, error)
}

// archivedReportRepository copies every created report to object storage.
// An archive failure is logged; the report stays in the primary store.
type archivedReportRepository struct {
	ReportRepository
	archive ObjectArchive
	logger  *zap.Logger
}

// NewArchivedReportRepository wraps next so that each created report is also archived.
func NewArchivedReportRepository(next ReportRepository, archive ObjectArchive, logger *zap.Logger) ReportRepository {
	return &archivedReportRepository{
		ReportRepository: next,
		archive:          archive,
		logger:           logger.Named("report-archive"),
	}
}

// ArchiveKey is the object key of a report: kind/yyyy/mm/id.json.
func ArchiveKey(report *models.Report) string {
	return fmt.Sprintf("%s/%s/%s.json",
		report.Kind,
		report.CreatedAt.UTC().Format("2006/01"),
		report.ID)
}

func (r *archivedReportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.ReportRepository.Create(ctx, report); err != nil {
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Warn("Failed to encode report for archive",
			zap.String("report_id", report.ID.String()),
			zap.Error(err))
		return nil
	}
	location, err := r.archive.PutJSON(ctx, ArchiveKey(report), data)
	if err != nil {
		r.logger.Warn("Report archive failed",
			zap.String("report_id", report.ID.String()),
			zap.Error(err))
		return nil
	}
	r.logger.Debug("Report archived",
		zap.String("report_id", report.ID.String()),
		zap.String("location", location))
	return nil
}

var _ ReportRepository = (*archivedReportRepository)(nil)
