package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

type mockOrchestrator struct {
	result *models.QueryResult
	last   models.QueryRequest
}

var _ services.QueryOrchestrator = (*mockOrchestrator)(nil)

func (m *mockOrchestrator) Process(_ context.Context, req models.QueryRequest) *models.QueryResult {
	m.last = req
	r := *m.result
	r.Request = req
	return &r
}

func (m *mockOrchestrator) RunIntegrityCheck(context.Context) (*services.IntegrityOutcome, error) {
	return nil, nil
}

type mockIntegrity struct {
	outcome *services.IntegrityOutcome
	err     error
}

var _ services.IntegrityService = (*mockIntegrity)(nil)

func (m *mockIntegrity) Run(context.Context) *models.IntegrityRun { return m.outcome.Run }
func (m *mockIntegrity) RunAndReport(context.Context) (*services.IntegrityOutcome, error) {
	return m.outcome, m.err
}
func (m *mockIntegrity) Latest(context.Context) (*models.Report, error) { return m.outcome.Report, nil }
func (m *mockIntegrity) Checks() []integrity.Check                      { return nil }

type mockReports struct {
	latest map[string]*models.Report
}

var _ services.ReportService = (*mockReports)(nil)

func (m *mockReports) Save(context.Context, *models.Report) error { return nil }
func (m *mockReports) Get(context.Context, uuid.UUID) (*models.Report, error) {
	return nil, apperrors.ErrNotFound
}
func (m *mockReports) Latest(_ context.Context, kind string) (*models.Report, error) {
	if r, ok := m.latest[kind]; ok {
		return r, nil
	}
	return nil, apperrors.ErrNotFound
}
func (m *mockReports) List(context.Context, models.ReportFilter) ([]*models.Report, error) {
	return nil, nil
}

type mockAnalytics struct {
	services.AnalyticsService
	churn    []models.EntityScore
	churnErr error
	tier     string
}

func (m *mockAnalytics) ChurnRisk(_ context.Context, tier string) ([]models.EntityScore, error) {
	m.tier = tier
	return m.churn, m.churnErr
}

type mockHealth struct {
	status *models.HealthStatus
}

func (m *mockHealth) Status(context.Context) *models.HealthStatus { return m.status }

// toolOutput is the decoded text content of a tools/call response.
type toolOutput struct {
	Text    string
	IsError bool
}

func newClinicServer(deps *ClinicToolDeps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterClinicTools(s, deps)
	return s
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolOutput {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	request := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":` + string(params) + `}`

	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), []byte(request)))
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resultBytes, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error != nil {
		return toolOutput{Text: response.Error.Message, IsError: true}
	}
	if len(response.Result.Content) == 0 {
		t.Fatalf("expected tool content, got %s", resultBytes)
	}
	return toolOutput{Text: response.Result.Content[0].Text, IsError: response.Result.IsError}
}
