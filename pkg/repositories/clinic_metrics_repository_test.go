package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource/sqlite"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scoring"
)

var metricsNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newClinicMetricsRepo(t *testing.T) ClinicMetricsRepository {
	t.Helper()
	exec, err := sqlite.NewQueryExecutor(context.Background(), config.DatasourceConfig{Type: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	stmts := []string{
		`CREATE TABLE Pacientes (IdPac INTEGER PRIMARY KEY, Nombre TEXT, Tel1 TEXT, Email TEXT, Inactivo INTEGER, FechaAlta TEXT)`,
		`CREATE TABLE Citas (IdCita INTEGER PRIMARY KEY, IdPac INTEGER, FechaCita TEXT, Estado TEXT)`,
		`CREATE TABLE Facturas (IdFac INTEGER PRIMARY KEY, IdPac INTEGER, Fecha TEXT, ImporteTotal REAL, ImportePagado REAL, Estado TEXT)`,
		`CREATE TABLE TTratamientos (IdTTratamiento INTEGER PRIMARY KEY, Codigo TEXT, Descripcion TEXT)`,
		`CREATE TABLE Tratamientos (IdTratamiento INTEGER PRIMARY KEY, IdPac INTEGER, IdTTratamiento INTEGER, Estado TEXT, PrecioFinal REAL, Duracion INTEGER)`,

		`INSERT INTO Pacientes VALUES (1, 'Ana', '600111222', 'ana@example.com', 0, '2024-03-10')`,
		`INSERT INTO Pacientes VALUES (2, 'Luis', NULL, NULL, NULL, '2024-03-20')`,
		`INSERT INTO Pacientes VALUES (3, 'Marta', NULL, NULL, 1, NULL)`,
		`INSERT INTO Pacientes VALUES (4, 'Eva', NULL, 'eva@example.com', 0, '2025-01-05')`,

		`INSERT INTO Citas VALUES (1, 1, '2025-10-01 12:00:00', 'Finalizada')`,
		`INSERT INTO Citas VALUES (2, 1, '2026-01-01 12:00:00', 'Fallo')`,
		`INSERT INTO Citas VALUES (3, 1, '2026-08-01 12:00:00', 'Fallo')`,
		`INSERT INTO Citas VALUES (4, 1, '2026-08-15 12:00:00', 'Fallo')`,
		`INSERT INTO Citas VALUES (5, 1, '2026-09-01 12:00:00', 'Fallo')`,
		`INSERT INTO Citas VALUES (6, 3, '2026-09-10 12:00:00', 'Finalizada')`,
		`INSERT INTO Citas VALUES (7, 4, '2026-09-21 12:00:00', 'Programada')`,

		`INSERT INTO Facturas VALUES (1, 1, '2026-02-01 12:00:00', 1000, 400, 'Pagada')`,
		`INSERT INTO Facturas VALUES (2, 1, '2026-03-01 12:00:00', 500, 0, 'Anulada')`,

		`INSERT INTO TTratamientos VALUES (1, 'LIM', 'Limpieza')`,
		`INSERT INTO TTratamientos VALUES (2, 'END', 'Endodoncia')`,
		`INSERT INTO TTratamientos VALUES (3, 'IMP', 'Implante')`,

		`INSERT INTO Tratamientos VALUES (1, 1, 1, 'Finalizado', 60, 30)`,
		`INSERT INTO Tratamientos VALUES (2, 1, 2, 'Pendiente', 300, 90)`,
		`INSERT INTO Tratamientos VALUES (3, 3, 1, 'Finalizado', 80, 50)`,
	}
	for _, stmt := range stmts {
		_, err := exec.ExecuteWithParams(context.Background(), stmt, nil)
		require.NoError(t, err, stmt)
	}
	return NewClinicMetricsRepository(exec)
}

func TestClinicMetrics_ChurnFeatures(t *testing.T) {
	repo := newClinicMetricsRepo(t)

	features, err := repo.ChurnFeatures(context.Background(), metricsNow)
	require.NoError(t, err)

	byID := make(map[string]scoring.PatientFeatures)
	for _, f := range features {
		byID[f.PatientID] = f
	}
	// Luis has no appointments and Marta is inactive
	require.Len(t, byID, 2)

	ana := byID["1"]
	assert.Equal(t, "Ana", ana.Name)
	assert.Equal(t, "600111222", ana.Contact)
	assert.Equal(t, 3, ana.MissedAppointments)
	assert.Equal(t, 365, ana.DaysSinceLastVisit)
	assert.Equal(t, 30, ana.DaysSinceLastContact)
	assert.InDelta(t, 600.0, ana.OutstandingBalance, 1e-9)
	assert.InDelta(t, 0.5, ana.TreatmentCompliance, 1e-9)

	eva := byID["4"]
	assert.Equal(t, "eva@example.com", eva.Contact)
	assert.Equal(t, 0, eva.MissedAppointments)
	assert.Equal(t, 10, eva.DaysSinceLastVisit)
	assert.Equal(t, 10, eva.DaysSinceLastContact)
	assert.Zero(t, eva.OutstandingBalance)
	assert.InDelta(t, 1.0, eva.TreatmentCompliance, 1e-9)
}

// rowsExecutor streams fixed rows; every other call panics.
type rowsExecutor struct {
	datasource.QueryExecutor
	rows []models.Row
}

func (e *rowsExecutor) Dialect() datasource.Dialect { return sqlite.Dialect{} }

func (e *rowsExecutor) QueryEach(_ context.Context, _ string, _ []any, fn func(models.Row) error) error {
	for _, row := range e.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func TestClinicMetrics_ChurnFeaturesReportsBadAppointmentCount(t *testing.T) {
	repo := NewClinicMetricsRepository(&rowsExecutor{rows: []models.Row{{
		{Name: "IdPac", Value: int64(1)},
		{Name: "total_appointments", Value: struct{}{}},
	}}})

	_, err := repo.ChurnFeatures(context.Background(), metricsNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_appointments")
}

func TestClinicMetrics_PatientRevenue(t *testing.T) {
	repo := newClinicMetricsRepo(t)

	revenue, err := repo.PatientRevenue(context.Background(), metricsNow)
	require.NoError(t, err)
	require.Len(t, revenue, 1)

	ana := revenue[0]
	assert.Equal(t, "1", ana.PatientID)
	assert.InDelta(t, 1000.0, ana.TotalRevenue, 1e-9)
	assert.InDelta(t, 400.0, ana.TotalPaid, 1e-9)
	assert.InDelta(t, 1000.0, ana.AvgInvoice, 1e-9)
	assert.Equal(t, 1, ana.TotalInvoices)
	assert.Equal(t, 5, ana.TotalAppointments)
	assert.Equal(t, 2, ana.TotalTreatments)
	assert.Equal(t, 4, ana.ActiveMonths)
	assert.Equal(t, 30, ana.DaysSinceLastVisit)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), ana.FirstVisit)
}

func TestClinicMetrics_TreatmentStats(t *testing.T) {
	repo := newClinicMetricsRepo(t)

	stats, err := repo.TreatmentStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, "LIM", stats[0].Code)
	assert.Equal(t, "Limpieza", stats[0].Name)
	assert.Equal(t, 2, stats[0].TimesPerformed)
	assert.InDelta(t, 70.0, stats[0].AvgPrice, 1e-9)
	assert.InDelta(t, 140.0, stats[0].TotalRevenue, 1e-9)
	assert.InDelta(t, 40.0, stats[0].AvgDurationMinutes, 1e-9)
}

func TestClinicMetrics_CohortMembers(t *testing.T) {
	repo := newClinicMetricsRepo(t)

	members, err := repo.CohortMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 3)

	cohorts := scoring.BuildCohorts(members, scoring.CohortMonth)
	require.Len(t, cohorts, 2)
	assert.Equal(t, "2025-01", cohorts[0].Period)
	assert.Equal(t, "2024-03", cohorts[1].Period)
	assert.Equal(t, 2, cohorts[1].Size)
	assert.InDelta(t, 400.0, cohorts[1].TotalRevenue, 1e-9)
	assert.InDelta(t, 200.0, cohorts[1].AverageLTV, 1e-9)
}
