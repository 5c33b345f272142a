package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

const testSecret = "test-secret"

// newTestAuth returns HS256 auth middleware and a valid token for subject.
func newTestAuth(t *testing.T, subject string) (*auth.Middleware, string) {
	t.Helper()
	client, err := auth.NewJWKSClient(&auth.JWKSConfig{EnableVerification: true, Secret: testSecret})
	if err != nil {
		t.Fatalf("failed to create token validator: %v", err)
	}
	token, err := auth.IssueToken(testSecret, "ia-dental", subject, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return auth.NewMiddleware(auth.NewAuthService(client, zap.NewNop()), zap.NewNop()), token
}

// serve sends a request through mux with an optional bearer token.
func serve(mux *http.ServeMux, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type mockOrchestrator struct {
	last  models.QueryRequest
	calls int
}

var _ services.QueryOrchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) Process(_ context.Context, req models.QueryRequest) *models.QueryResult {
	m.calls++
	m.last = req
	return &models.QueryResult{
		ID:           uuid.New(),
		Request:      req,
		GeneratedSQL: "SELECT COUNT(*) AS total FROM Pacientes",
		RowCount:     1,
		Status:       models.QueryStatusSuccess,
	}
}

func (m *mockOrchestrator) RunIntegrityCheck(context.Context) (*services.IntegrityOutcome, error) {
	return nil, nil
}

type mockIntegrity struct {
	outcome *services.IntegrityOutcome
	latest  *models.Report
	err     error
}

var _ services.IntegrityService = (*mockIntegrity)(nil)

func (m *mockIntegrity) Run(context.Context) *models.IntegrityRun { return m.outcome.Run }
func (m *mockIntegrity) RunAndReport(context.Context) (*services.IntegrityOutcome, error) {
	return m.outcome, m.err
}
func (m *mockIntegrity) Latest(context.Context) (*models.Report, error) { return m.latest, m.err }
func (m *mockIntegrity) Checks() []integrity.Check                      { return nil }

// mockAnalytics records the arguments it received.
type mockAnalytics struct {
	err       error
	tier      string
	limit     int
	by        string
	threshold *float64
}

var _ services.AnalyticsService = (*mockAnalytics)(nil)

func (m *mockAnalytics) ChurnRisk(_ context.Context, tier string) ([]models.EntityScore, error) {
	m.tier = tier
	return []models.EntityScore{{EntityID: "1", Tier: models.TierCritical}}, m.err
}
func (m *mockAnalytics) ChurnReport(context.Context) (*models.ChurnReport, error) {
	return &models.ChurnReport{TotalScored: 3}, m.err
}
func (m *mockAnalytics) LTV(_ context.Context, limit int) ([]models.EntityScore, error) {
	m.limit = limit
	return []models.EntityScore{}, m.err
}
func (m *mockAnalytics) TopLTV(_ context.Context, n int) ([]models.EntityScore, error) {
	m.limit = n
	return []models.EntityScore{}, m.err
}
func (m *mockAnalytics) Cohorts(_ context.Context, by string) ([]models.Cohort, error) {
	m.by = by
	return []models.Cohort{}, m.err
}
func (m *mockAnalytics) LTVReport(context.Context) (*models.LTVReport, error) {
	return &models.LTVReport{}, m.err
}
func (m *mockAnalytics) ROI(context.Context) ([]models.EntityScore, error) {
	return []models.EntityScore{}, m.err
}
func (m *mockAnalytics) TopROI(_ context.Context, n int) ([]models.EntityScore, error) {
	m.limit = n
	return []models.EntityScore{}, m.err
}
func (m *mockAnalytics) LowPerformers(_ context.Context, threshold *float64) ([]models.EntityScore, error) {
	m.threshold = threshold
	return []models.EntityScore{}, m.err
}
func (m *mockAnalytics) ROIReport(context.Context) (*models.ROIReport, error) {
	return &models.ROIReport{}, m.err
}
func (m *mockAnalytics) Dashboard(context.Context) (*models.Dashboard, error) {
	return &models.Dashboard{}, m.err
}
func (m *mockAnalytics) Weekly(context.Context) (*services.WeeklyAnalytics, error) {
	return &services.WeeklyAnalytics{}, m.err
}

type mockReports struct {
	reports []*models.Report
	filter  models.ReportFilter
	listErr error
}

var _ services.ReportService = (*mockReports)(nil)

func (m *mockReports) Save(context.Context, *models.Report) error { return nil }
func (m *mockReports) Get(_ context.Context, id uuid.UUID) (*models.Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
func (m *mockReports) Latest(context.Context, string) (*models.Report, error) {
	return nil, apperrors.ErrNotFound
}
func (m *mockReports) List(_ context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	m.filter = filter
	return m.reports, m.listErr
}

type mockScheduler struct {
	jobs   []models.ScheduledJob
	ran    string
	runErr error
}

var _ JobScheduler = (*mockScheduler)(nil)

func (m *mockScheduler) Jobs() []models.ScheduledJob { return m.jobs }
func (m *mockScheduler) RunNow(_ context.Context, jobID string) error {
	m.ran = jobID
	return m.runErr
}

type mockHealth struct {
	status *models.HealthStatus
}

var _ services.HealthService = (*mockHealth)(nil)

func (m *mockHealth) Status(context.Context) *models.HealthStatus { return m.status }
