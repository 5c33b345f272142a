package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/database"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// DefaultListLimit bounds report listings when no limit is given.
const DefaultListLimit = 50

// ReportRepository provides append-only storage for reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	// Latest returns the newest report of kind, or apperrors.ErrNotFound.
	Latest(ctx context.Context, kind string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)
}

type reportRepository struct {
	db *database.DB
}

// NewReportRepository stores reports in the Postgres reporting database.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

var _ ReportRepository = (*reportRepository)(nil)

const reportColumns = `id, kind, category, severity, title, description, payload, recommended_actions, created_at`

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	prepareReport(report)

	actions, err := json.Marshal(report.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended_actions: %w", err)
	}

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		report.ID,
		report.Kind,
		report.Category,
		string(report.Severity),
		report.Title,
		report.Description,
		[]byte(report.Payload),
		actions,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) Latest(ctx context.Context, kind string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE kind = $1 ORDER BY created_at DESC LIMIT 1`

	report, err := scanReport(r.db.QueryRow(ctx, query, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, listLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		report   models.Report
		severity string
		payload  []byte
		actions  []byte
	)
	err := row.Scan(
		&report.ID,
		&report.Kind,
		&report.Category,
		&severity,
		&report.Title,
		&report.Description,
		&payload,
		&actions,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Severity = models.Severity(severity)
	report.Payload = json.RawMessage(payload)
	if err := decodeActions(actions, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// prepareReport fills the identity fields every store needs.
func prepareReport(report *models.Report) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if len(report.Payload) == 0 {
		report.Payload = json.RawMessage(`{}`)
	}
	if report.RecommendedActions == nil {
		report.RecommendedActions = []string{}
	}
}

func decodeActions(raw []byte, report *models.Report) error {
	report.RecommendedActions = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &report.RecommendedActions); err != nil {
		return fmt.Errorf("failed to unmarshal recommended_actions: %w", err)
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
