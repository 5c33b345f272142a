package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scoring"
)

// missedWindowMonths bounds the missed-appointment count.
const missedWindowMonths = 6

// ClinicMetricsRepository extracts the per-patient and per-treatment features
// the scoring engines consume. Every read streams the full table; none of
// them is capped at datasource.MaxQueryLimit.
type ClinicMetricsRepository interface {
	ChurnFeatures(ctx context.Context, now time.Time) ([]scoring.PatientFeatures, error)
	PatientRevenue(ctx context.Context, now time.Time) ([]scoring.PatientRevenue, error)
	TreatmentStats(ctx context.Context) ([]scoring.TreatmentStats, error)
	CohortMembers(ctx context.Context) ([]scoring.CohortMember, error)
}

type clinicMetricsRepository struct {
	exec datasource.QueryExecutor
}

func NewClinicMetricsRepository(exec datasource.QueryExecutor) ClinicMetricsRepository {
	return &clinicMetricsRepository{exec: exec}
}

var _ ClinicMetricsRepository = (*clinicMetricsRepository)(nil)

// Identifiers are written [Name] and quoted per dialect before execution.
// Dates are compared against parameters and day counts are computed here,
// so no engine-specific date function is needed.

const churnFeaturesSQL = `SELECT p.[IdPac] AS patient_id, p.[Nombre] AS name, p.[Tel1] AS phone, p.[Email] AS email,
    (SELECT COUNT(*) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac] AND c.[Estado] = 'Fallo' AND c.[FechaCita] >= $1) AS missed_appointments,
    (SELECT MAX(c.[FechaCita]) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac] AND c.[Estado] = 'Finalizada') AS last_visit,
    (SELECT MAX(c.[FechaCita]) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac]) AS last_appointment,
    (SELECT MAX(f.[Fecha]) FROM [Facturas] f WHERE f.[IdPac] = p.[IdPac]) AS last_invoice,
    (SELECT SUM(f.[ImporteTotal] - f.[ImportePagado]) FROM [Facturas] f
        WHERE f.[IdPac] = p.[IdPac] AND (f.[Estado] IS NULL OR f.[Estado] <> 'Anulada')) AS outstanding_balance,
    (SELECT COUNT(*) FROM [Tratamientos] t WHERE t.[IdPac] = p.[IdPac] AND t.[Estado] = 'Finalizado') AS finished_treatments,
    (SELECT COUNT(*) FROM [Tratamientos] t WHERE t.[IdPac] = p.[IdPac]) AS total_treatments,
    (SELECT COUNT(*) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac]) AS total_appointments
FROM [Pacientes] p
WHERE p.[Inactivo] = 0 OR p.[Inactivo] IS NULL`

const patientRevenueSQL = `SELECT p.[IdPac] AS patient_id, p.[Nombre] AS name, p.[FechaAlta] AS first_visit,
    (SELECT MAX(c.[FechaCita]) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac]) AS last_visit,
    (SELECT COUNT(*) FROM [Citas] c WHERE c.[IdPac] = p.[IdPac]) AS total_appointments,
    (SELECT COUNT(*) FROM [Facturas] f
        WHERE f.[IdPac] = p.[IdPac] AND (f.[Estado] IS NULL OR f.[Estado] <> 'Anulada')) AS total_invoices,
    (SELECT SUM(f.[ImporteTotal]) FROM [Facturas] f
        WHERE f.[IdPac] = p.[IdPac] AND (f.[Estado] IS NULL OR f.[Estado] <> 'Anulada')) AS total_revenue,
    (SELECT SUM(f.[ImportePagado]) FROM [Facturas] f
        WHERE f.[IdPac] = p.[IdPac] AND (f.[Estado] IS NULL OR f.[Estado] <> 'Anulada')) AS total_paid,
    (SELECT COUNT(*) FROM [Tratamientos] t WHERE t.[IdPac] = p.[IdPac]) AS total_treatments
FROM [Pacientes] p
WHERE p.[Inactivo] = 0 OR p.[Inactivo] IS NULL`

const appointmentDatesSQL = `SELECT c.[IdPac] AS patient_id, c.[FechaCita] AS appointment_date
FROM [Citas] c
WHERE c.[FechaCita] IS NOT NULL`

const treatmentStatsSQL = `SELECT t.[IdTTratamiento] AS treatment_id, t.[Codigo] AS code, t.[Descripcion] AS name,
    COUNT(tt.[IdTratamiento]) AS times_performed,
    AVG(tt.[PrecioFinal]) AS avg_price,
    SUM(tt.[PrecioFinal]) AS total_revenue,
    AVG(tt.[Duracion]) AS avg_duration_minutes
FROM [TTratamientos] t
JOIN [Tratamientos] tt ON t.[IdTTratamiento] = tt.[IdTTratamiento]
WHERE tt.[Estado] = 'Finalizado'
GROUP BY t.[IdTTratamiento], t.[Codigo], t.[Descripcion]`

const cohortMembersSQL = `SELECT p.[FechaAlta] AS first_visit,
    (SELECT SUM(f.[ImportePagado]) FROM [Facturas] f
        WHERE f.[IdPac] = p.[IdPac] AND (f.[Estado] IS NULL OR f.[Estado] <> 'Anulada')) AS total_paid
FROM [Pacientes] p
WHERE p.[FechaAlta] IS NOT NULL`

func (r *clinicMetricsRepository) query(sqlQuery string) string {
	return datasource.QuoteBracketed(r.exec.Dialect(), sqlQuery)
}

func (r *clinicMetricsRepository) ChurnFeatures(ctx context.Context, now time.Time) ([]scoring.PatientFeatures, error) {
	since := now.AddDate(0, -missedWindowMonths, 0)

	var out []scoring.PatientFeatures
	err := r.exec.QueryEach(ctx, r.query(churnFeaturesSQL), []any{since}, func(row models.Row) error {
		rd := rowReader{row: row}

		// patients without any appointment have no history to score
		if rd.asInt("total_appointments") == 0 {
			return rd.err
		}

		lastAppointment := rd.asTime("last_appointment")
		lastVisit := rd.asTime("last_visit")
		if lastVisit.IsZero() {
			lastVisit = lastAppointment
		}
		lastContact := lastAppointment
		if invoice := rd.asTime("last_invoice"); invoice.After(lastContact) {
			lastContact = invoice
		}

		compliance := 1.0
		if total := rd.asInt("total_treatments"); total > 0 {
			compliance = float64(rd.asInt("finished_treatments")) / float64(total)
		}

		contact := rd.asString("phone")
		if contact == "" {
			contact = rd.asString("email")
		}

		out = append(out, scoring.PatientFeatures{
			PatientID:            rd.asString("patient_id"),
			Name:                 rd.asString("name"),
			Contact:              contact,
			MissedAppointments:   rd.asInt("missed_appointments"),
			DaysSinceLastVisit:   daysSince(now, lastVisit),
			DaysSinceLastContact: daysSince(now, lastContact),
			OutstandingBalance:   rd.asFloat("outstanding_balance"),
			TreatmentCompliance:  compliance,
		})
		return rd.err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract churn features: %w", err)
	}
	return out, nil
}

func (r *clinicMetricsRepository) PatientRevenue(ctx context.Context, now time.Time) ([]scoring.PatientRevenue, error) {
	months, err := r.activeMonths(ctx)
	if err != nil {
		return nil, err
	}

	var out []scoring.PatientRevenue
	err = r.exec.QueryEach(ctx, r.query(patientRevenueSQL), nil, func(row models.Row) error {
		rd := rowReader{row: row}

		revenue := rd.asFloat("total_revenue")
		if revenue <= 0 {
			return rd.err
		}

		id := rd.asString("patient_id")
		lastVisit := rd.asTime("last_visit")
		days := -1
		if !lastVisit.IsZero() {
			days = daysSince(now, lastVisit)
		}

		p := scoring.PatientRevenue{
			PatientID:          id,
			Name:               rd.asString("name"),
			FirstVisit:         rd.asTime("first_visit"),
			LastVisit:          lastVisit,
			DaysSinceLastVisit: days,
			TotalAppointments:  rd.asInt("total_appointments"),
			TotalInvoices:      rd.asInt("total_invoices"),
			TotalTreatments:    rd.asInt("total_treatments"),
			ActiveMonths:       len(months[id]),
			TotalRevenue:       revenue,
			TotalPaid:          rd.asFloat("total_paid"),
		}
		if p.TotalInvoices > 0 {
			p.AvgInvoice = revenue / float64(p.TotalInvoices)
		}
		out = append(out, p)
		return rd.err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract patient revenue: %w", err)
	}
	return out, nil
}

// activeMonths collects the distinct calendar months with an appointment,
// keyed by patient.
func (r *clinicMetricsRepository) activeMonths(ctx context.Context) (map[string]map[int]struct{}, error) {
	months := make(map[string]map[int]struct{})
	err := r.exec.QueryEach(ctx, r.query(appointmentDatesSQL), nil, func(row models.Row) error {
		rd := rowReader{row: row}
		id := rd.asString("patient_id")
		when := rd.asTime("appointment_date")
		if rd.err != nil || when.IsZero() {
			return rd.err
		}
		set, ok := months[id]
		if !ok {
			set = make(map[int]struct{})
			months[id] = set
		}
		set[when.Year()*100+int(when.Month())] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read appointment months: %w", err)
	}
	return months, nil
}

func (r *clinicMetricsRepository) TreatmentStats(ctx context.Context) ([]scoring.TreatmentStats, error) {
	var out []scoring.TreatmentStats
	err := r.exec.QueryEach(ctx, r.query(treatmentStatsSQL), nil, func(row models.Row) error {
		rd := rowReader{row: row}
		times := rd.asInt("times_performed")
		if times == 0 {
			return rd.err
		}

		code := rd.asString("code")
		if code == "" {
			code = rd.asString("treatment_id")
		}
		out = append(out, scoring.TreatmentStats{
			Code:               code,
			Name:               rd.asString("name"),
			TimesPerformed:     times,
			AvgPrice:           rd.asFloat("avg_price"),
			TotalRevenue:       rd.asFloat("total_revenue"),
			AvgDurationMinutes: rd.asFloat("avg_duration_minutes"),
		})
		return rd.err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract treatment stats: %w", err)
	}
	return out, nil
}

func (r *clinicMetricsRepository) CohortMembers(ctx context.Context) ([]scoring.CohortMember, error) {
	var out []scoring.CohortMember
	err := r.exec.QueryEach(ctx, r.query(cohortMembersSQL), nil, func(row models.Row) error {
		rd := rowReader{row: row}
		out = append(out, scoring.CohortMember{
			FirstVisit: rd.asTime("first_visit"),
			Paid:       rd.asFloat("total_paid"),
		})
		return rd.err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract cohort members: %w", err)
	}
	return out, nil
}

// daysSince counts whole days from t to now. Future dates count as zero.
func daysSince(now, t time.Time) int {
	if t.IsZero() {
		return 0
	}
	d := int(now.Sub(t).Hours() / 24)
	return max(d, 0)
}

// rowReader converts named columns and keeps the first conversion error.
type rowReader struct {
	row models.Row
	err error
}

func (r *rowReader) value(name string) any {
	v, _ := r.row.Get(name)
	return v
}

func (r *rowReader) asString(name string) string {
	return datasource.ToString(r.value(name))
}

func (r *rowReader) asInt(name string) int {
	n, err := datasource.ToInt64(r.value(name))
	r.keep(name, err)
	return int(n)
}

func (r *rowReader) asFloat(name string) float64 {
	f, err := datasource.ToFloat64(r.value(name))
	r.keep(name, err)
	return f
}

func (r *rowReader) asTime(name string) time.Time {
	t, err := datasource.ToTime(r.value(name))
	r.keep(name, err)
	return t
}

func (r *rowReader) keep(name string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("column %s: %w", name, err)
	}
}
