package integrity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource/mssql"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// mockCounter answers by matching a substring of the SQL.
type mockCounter struct {
	mu      sync.Mutex
	results map[string]any
	errs    map[string]error
	calls   []string
}

func (m *mockCounter) QueryScalar(ctx context.Context, sqlQuery string, params ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sqlQuery)
	for frag, err := range m.errs {
		if strings.Contains(sqlQuery, frag) {
			return nil, err
		}
	}
	for frag, v := range m.results {
		if strings.Contains(sqlQuery, frag) {
			return v, nil
		}
	}
	return int64(0), nil
}

func newDefaultEngine(t *testing.T, counter Counter) *Engine {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	e, err := NewEngine(counter, mssql.Dialect{}, c, DefaultParams(), zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestEngine_AllPassed(t *testing.T) {
	counter := &mockCounter{}
	run := newDefaultEngine(t, counter).Run(context.Background())

	assert.Equal(t, models.RunPassed, run.Status)
	assert.Equal(t, 8, run.Total)
	assert.Equal(t, 8, run.Passed)
	assert.Equal(t, 0, run.Failed)
	assert.Empty(t, run.CriticalIssues)
	assert.Empty(t, run.Warnings)
	assert.Equal(t, "2", run.CatalogVersion)
	assert.Len(t, counter.calls, 8)
	assert.Equal(t, []string{"No action required: all checks passed"}, RecommendedActions(run))
}

func TestEngine_WarningOnlyFailures(t *testing.T) {
	counter := &mockCounter{results: map[string]any{"[Centros]": int64(4)}}
	run := newDefaultEngine(t, counter).Run(context.Background())

	assert.Equal(t, models.RunWarning, run.Status)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.FailedFindings(), 1)
	assert.Equal(t, "Centros in Citas", run.FailedFindings()[0].TestName)
	assert.Equal(t, int64(4), run.FailedFindings()[0].MetricCount)
	assert.Empty(t, run.CriticalIssues)
}

func TestEngine_CriticalFailure(t *testing.T) {
	counter := &mockCounter{results: map[string]any{"ImporteTotal < 0": []byte("3")}}
	run := newDefaultEngine(t, counter).Run(context.Background())

	assert.Equal(t, models.RunFailed, run.Status)
	require.Len(t, run.CriticalIssues, 1)
	assert.Equal(t, "Invoices with negative amount", run.CriticalIssues[0].TestName)
	assert.Equal(t, int64(3), run.CriticalIssues[0].MetricCount)
	assert.Contains(t, RecommendedActions(run)[0], "CRITICAL")
}

func TestEngine_CheckErrorBecomesWarning(t *testing.T) {
	counter := &mockCounter{
		errs:    map[string]error{"PresupuestosTratamientos": errors.New("Invalid object name 'PresupuestosTratamientos'")},
		results: map[string]any{"[Facturas]": int64(2)},
	}
	run := newDefaultEngine(t, counter).Run(context.Background())

	// the failing check is excluded from the counts, the rest still ran
	assert.Equal(t, 7, run.Total)
	assert.Equal(t, 6, run.Passed)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Warnings, 1)
	assert.Equal(t, "Budgets without treatments", run.Warnings[0].TestName)
	assert.Contains(t, run.Warnings[0].Error, "Invalid object name")
	assert.Len(t, counter.calls, 8)
	assert.Equal(t, models.RunFailed, run.Status)

	actions := RecommendedActions(run)
	assert.Contains(t, actions, "1 check(s) could not run; verify the schema they reference")
}

func TestEngine_NonNumericResultIsWarning(t *testing.T) {
	counter := &mockCounter{results: map[string]any{"[Facturas]": "n/a"}}
	run := newDefaultEngine(t, counter).Run(context.Background())

	require.Len(t, run.Warnings, 1)
	assert.Equal(t, "Pacientes in Facturas", run.Warnings[0].TestName)
	assert.Equal(t, 7, run.Total)
}

func TestEngine_ThresholdRespected(t *testing.T) {
	c, err := ParseCatalog([]byte(`
version: "t"
checks:
  - {name: tolerant, kind: consistency, severity: warning, threshold: 5, sql: {default: SELECT COUNT(*) FROM tolerant}}
`))
	require.NoError(t, err)
	e, err := NewEngine(&mockCounter{results: map[string]any{"tolerant": int64(5)}}, mssql.Dialect{}, c, DefaultParams(), zap.NewNop())
	require.NoError(t, err)

	run := e.Run(context.Background())
	assert.Equal(t, models.RunPassed, run.Status)
	assert.Equal(t, 1, run.Passed)
}

func TestEngine_Idempotent(t *testing.T) {
	counter := &mockCounter{results: map[string]any{
		"[Citas] c WHERE c.[IdPac]": int64(2),
		"ImporteTotal":              int64(1),
		"DATEADD(YEAR":              int64(7),
	}}
	e := newDefaultEngine(t, counter)

	first := e.Run(context.Background())
	second := e.Run(context.Background())

	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, first.Failed, second.Failed)
	assert.Equal(t, len(first.Warnings), len(second.Warnings))
	assert.Equal(t, first.CriticalIssues, second.CriticalIssues)
	assert.Equal(t, first.Findings, second.Findings)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngine_CountErrorWrapsSentinel(t *testing.T) {
	e := newDefaultEngine(t, &mockCounter{errs: map[string]error{"SELECT": errors.New("boom")}})
	_, err := e.count(context.Background(), e.checks[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCheckExecution))
	assert.Equal(t, apperrors.KindCheckExecutionWarning, apperrors.KindOf(err))
}

func TestEngine_ChecksReturnsCopy(t *testing.T) {
	e := newDefaultEngine(t, &mockCounter{})
	checks := e.Checks()
	checks[0].Name = "changed"
	assert.Equal(t, "Pacientes in Citas", e.Checks()[0].Name)
}

func TestRecommendedActions_MajorityFailed(t *testing.T) {
	run := &models.IntegrityRun{Passed: 1, Failed: 3}
	actions := RecommendedActions(run)
	assert.Equal(t, []string{"WARNING: more than 50% of checks failed", "Review the overall integrity of the database"}, actions)
}
