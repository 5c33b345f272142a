package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/repositories"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scoring"
)

// mockReportRepo is an in-memory repositories.ReportRepository.
type mockReportRepo struct {
	mu        sync.Mutex
	reports   []*models.Report
	createErr error
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{}
}

var _ repositories.ReportRepository = (*mockReportRepo)(nil)

func (m *mockReportRepo) Create(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	m.reports = append(m.reports, report)
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReportRepo) Latest(_ context.Context, kind string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.reports) - 1; i >= 0; i-- {
		if m.reports[i].Kind == kind {
			return m.reports[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReportRepo) List(_ context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Report
	for i := len(m.reports) - 1; i >= 0; i-- {
		r := m.reports[i]
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockReportRepo) saved() []*models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Report, len(m.reports))
	copy(out, m.reports)
	return out
}

// mockMetricsRepo serves fixed features.
type mockMetricsRepo struct {
	churn     []scoring.PatientFeatures
	revenue   []scoring.PatientRevenue
	treatment []scoring.TreatmentStats
	cohorts   []scoring.CohortMember
	err       error
}

var _ repositories.ClinicMetricsRepository = (*mockMetricsRepo)(nil)

func (m *mockMetricsRepo) ChurnFeatures(context.Context, time.Time) ([]scoring.PatientFeatures, error) {
	return m.churn, m.err
}

func (m *mockMetricsRepo) PatientRevenue(context.Context, time.Time) ([]scoring.PatientRevenue, error) {
	return m.revenue, m.err
}

func (m *mockMetricsRepo) TreatmentStats(context.Context) ([]scoring.TreatmentStats, error) {
	return m.treatment, m.err
}

func (m *mockMetricsRepo) CohortMembers(context.Context) ([]scoring.CohortMember, error) {
	return m.cohorts, m.err
}

// mockInsights records the topics it was asked about.
type mockInsights struct {
	mu        sync.Mutex
	text      string
	err       error
	topics    []string
	summaries int
}

var _ InsightGenerator = (*mockInsights)(nil)

func (m *mockInsights) Summarize(context.Context, string, []models.Row, int) (string, error) {
	m.mu.Lock()
	m.summaries++
	m.mu.Unlock()
	return m.text, m.err
}

func (m *mockInsights) Insights(_ context.Context, topic string, _ any) (string, error) {
	m.mu.Lock()
	m.topics = append(m.topics, topic)
	m.mu.Unlock()
	return m.text, m.err
}

func (m *mockInsights) summaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries
}

func (m *mockInsights) sortedTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.topics...)
	sort.Strings(out)
	return out
}

// mockRunner returns a fixed result and counts executions.
type mockRunner struct {
	result *datasource.QueryExecutionResult
	err    error
	calls  int
	sql    string
}

var _ QueryRunner = (*mockRunner)(nil)

func (m *mockRunner) Query(_ context.Context, sqlQuery string, _ int) (*datasource.QueryExecutionResult, error) {
	m.calls++
	m.sql = sqlQuery
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// rowsResult builds a one-column result with n rows.
func rowsResult(n int) *datasource.QueryExecutionResult {
	res := &datasource.QueryExecutionResult{
		Columns:  []models.ColumnInfo{{Name: "Nombre", Type: "NVARCHAR"}},
		Rows:     make([]models.Row, 0, n),
		RowCount: n,
	}
	for i := 0; i < n; i++ {
		res.Rows = append(res.Rows, models.Row{{Name: "Nombre", Value: "patient"}})
	}
	return res
}

// mockIntegrityRunner returns a fixed run.
type mockIntegrityRunner struct {
	run   *models.IntegrityRun
	calls int
}

var _ IntegrityRunner = (*mockIntegrityRunner)(nil)

func (m *mockIntegrityRunner) Run(context.Context) *models.IntegrityRun {
	m.calls++
	return m.run
}

func (m *mockIntegrityRunner) Checks() []integrity.Check {
	return []integrity.Check{{Name: "Pacientes in Citas", Category: models.CategoryOrphan, Severity: models.SeverityCritical}}
}

// recordingAlerts collects alerts synchronously.
type recordingAlerts struct {
	mu     sync.Mutex
	alerts []models.Alert
}

var _ AlertService = (*recordingAlerts)(nil)

func (r *recordingAlerts) Notify(alert models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func (r *recordingAlerts) Wait() {}

func (r *recordingAlerts) all() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.alerts...)
}

func criticalRun() *models.IntegrityRun {
	orphan := models.IntegrityFinding{
		TestName:    "Pacientes in Citas",
		Category:    models.CategoryOrphan,
		Severity:    models.SeverityCritical,
		MetricCount: 3,
		Status:      models.FindingFailed,
	}
	return &models.IntegrityRun{
		ID:             uuid.New(),
		StartedAt:      time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC),
		FinishedAt:     time.Date(2026, 10, 16, 2, 0, 5, 0, time.UTC),
		CatalogVersion: "2",
		Total:          2,
		Passed:         1,
		Failed:         1,
		Status:         models.RunFailed,
		Findings: []models.IntegrityFinding{orphan, {
			TestName: "Facturas con importe negativo",
			Category: models.CategoryConsistency,
			Severity: models.SeverityCritical,
			Status:   models.FindingPassed,
		}},
		CriticalIssues: []models.IntegrityFinding{orphan},
	}
}

func passingRun() *models.IntegrityRun {
	return &models.IntegrityRun{
		ID:         uuid.New(),
		StartedAt:  time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 10, 16, 2, 0, 1, 0, time.UTC),
		Total:      1,
		Passed:     1,
		Status:     models.RunPassed,
		Findings: []models.IntegrityFinding{{
			TestName: "Pacientes in Citas",
			Severity: models.SeverityCritical,
			Status:   models.FindingPassed,
		}},
		CriticalIssues: []models.IntegrityFinding{},
	}
}

// recordingAuditor notes which audit events were raised.
type recordingAuditor struct {
	mu   sync.Mutex
	seen []string
}

var _ QueryAuditor = (*recordingAuditor)(nil)

func (r *recordingAuditor) LogRejected(context.Context, *models.QueryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, "rejected")
}

func (r *recordingAuditor) LogExecution(context.Context, *models.QueryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, "executed")
}

func (r *recordingAuditor) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

var errBoom = errors.New("boom")
