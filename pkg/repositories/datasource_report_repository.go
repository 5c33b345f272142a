package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// datasourceReportRepository writes reports into a table of the clinic
// database itself, for sites without a separate reporting database.
type datasourceReportRepository struct {
	exec  datasource.QueryExecutor
	table string
}

// NewDatasourceReportRepository stores reports in table (REPORTES_QA by default)
// inside the clinic database.
func NewDatasourceReportRepository(exec datasource.QueryExecutor, table string) (ReportRepository, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid reports table name %q", table)
	}
	return &datasourceReportRepository{exec: exec, table: table}, nil
}

var _ ReportRepository = (*datasourceReportRepository)(nil)

const datasourceReportColumns = `REP_ID, REP_TIPO, REP_CATEGORIA, REP_SEVERIDAD, REP_TITULO, REP_DESCRIPCION, REP_DATOS_JSON, REP_ACCIONES, REP_FECHA`

// EnsureTable creates the reports table when it does not exist yet.
func EnsureTable(ctx context.Context, repo ReportRepository) error {
	r, ok := repo.(*datasourceReportRepository)
	if !ok {
		return nil
	}
	_, err := r.exec.ExecuteWithParams(ctx, r.createTableSQL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.table, err)
	}
	return nil
}

func (r *datasourceReportRepository) createTableSQL() string {
	switch r.exec.Dialect().Name() {
	case "mssql":
		return fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
    REP_ID NVARCHAR(36) NOT NULL PRIMARY KEY,
    REP_TIPO NVARCHAR(32) NOT NULL,
    REP_CATEGORIA NVARCHAR(64) NOT NULL,
    REP_SEVERIDAD NVARCHAR(16) NOT NULL,
    REP_TITULO NVARCHAR(255) NOT NULL,
    REP_DESCRIPCION NVARCHAR(MAX) NULL,
    REP_DATOS_JSON NVARCHAR(MAX) NULL,
    REP_ACCIONES NVARCHAR(MAX) NULL,
    REP_FECHA DATETIME2 NOT NULL
)`, r.table)
	case "postgres":
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    REP_ID VARCHAR(36) PRIMARY KEY,
    REP_TIPO VARCHAR(32) NOT NULL,
    REP_CATEGORIA VARCHAR(64) NOT NULL,
    REP_SEVERIDAD VARCHAR(16) NOT NULL,
    REP_TITULO VARCHAR(255) NOT NULL,
    REP_DESCRIPCION TEXT,
    REP_DATOS_JSON TEXT,
    REP_ACCIONES TEXT,
    REP_FECHA TIMESTAMPTZ NOT NULL
)`, r.table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    REP_ID TEXT PRIMARY KEY,
    REP_TIPO TEXT NOT NULL,
    REP_CATEGORIA TEXT NOT NULL,
    REP_SEVERIDAD TEXT NOT NULL,
    REP_TITULO TEXT NOT NULL,
    REP_DESCRIPCION TEXT,
    REP_DATOS_JSON TEXT,
    REP_ACCIONES TEXT,
    REP_FECHA DATETIME NOT NULL
)`, r.table)
	}
}

func (r *datasourceReportRepository) Create(ctx context.Context, report *models.Report) error {
	prepareReport(report)

	actions, err := json.Marshal(report.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended_actions: %w", err)
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.table, datasourceReportColumns)

	_, err = r.exec.ExecuteWithParams(ctx, stmt, []any{
		report.ID.String(),
		report.Kind,
		report.Category,
		string(report.Severity),
		report.Title,
		report.Description,
		string(report.Payload),
		string(actions),
		report.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *datasourceReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE REP_ID = $1`, datasourceReportColumns, r.table)
	return r.one(ctx, query, id.String())
}

func (r *datasourceReportRepository) Latest(ctx context.Context, kind string) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE REP_TIPO = $1 ORDER BY REP_FECHA DESC`, datasourceReportColumns, r.table)
	return r.one(ctx, query, kind)
}

func (r *datasourceReportRepository) one(ctx context.Context, query string, arg any) (*models.Report, error) {
	res, err := r.exec.QueryWithParams(ctx, query, []any{arg}, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rowToReport(res.Rows[0])
}

func (r *datasourceReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("REP_TIPO = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		conditions = append(conditions, fmt.Sprintf("REP_FECHA >= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, datasourceReportColumns, r.table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY REP_FECHA DESC"

	res, err := r.exec.QueryWithParams(ctx, query, args, listLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*models.Report, 0, len(res.Rows))
	for _, row := range res.Rows {
		report, err := rowToReport(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func rowToReport(row models.Row) (*models.Report, error) {
	values := make([]any, len(row))
	for i, f := range row {
		values[i] = f.Value
	}
	if len(values) != 9 {
		return nil, fmt.Errorf("unexpected report row width %d", len(values))
	}

	id, err := uuid.Parse(datasource.ToString(values[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid report id: %w", err)
	}
	createdAt, err := datasource.ToTime(values[8])
	if err != nil {
		return nil, fmt.Errorf("invalid report date: %w", err)
	}

	report := &models.Report{
		ID:          id,
		Kind:        datasource.ToString(values[1]),
		Category:    datasource.ToString(values[2]),
		Severity:    models.Severity(datasource.ToString(values[3])),
		Title:       datasource.ToString(values[4]),
		Description: datasource.ToString(values[5]),
		CreatedAt:   createdAt,
	}
	if payload := datasource.ToString(values[6]); payload != "" {
		report.Payload = json.RawMessage(payload)
	} else {
		report.Payload = json.RawMessage(`{}`)
	}
	if err := decodeActions([]byte(datasource.ToString(values[7])), report); err != nil {
		return nil, err
	}
	return report, nil
}
