package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// Value segments.
const (
	SegmentVIP    = "VIP"
	SegmentHigh   = "High Value"
	SegmentMedium = "Medium Value"
	SegmentLow    = "Low Value"
)

// Patient status by recency.
const (
	StatusActive  = "Active"
	StatusAtRisk  = "At Risk"
	StatusChurned = "Churned"
)

// Cohort granularities.
const (
	CohortMonth   = "month"
	CohortQuarter = "quarter"
)

const (
	activeStatusDays = 90
	atRiskStatusDays = 180
	topN             = 10
)

// PatientRevenue are the billing and visit aggregates of one patient.
type PatientRevenue struct {
	PatientID string
	Name      string

	FirstVisit time.Time
	LastVisit  time.Time
	// DaysSinceLastVisit is negative when the patient has no appointment on record.
	DaysSinceLastVisit int

	TotalAppointments int
	TotalInvoices     int
	TotalTreatments   int
	// ActiveMonths counts distinct calendar months with an appointment.
	ActiveMonths int

	TotalRevenue float64
	TotalPaid    float64
	AvgInvoice   float64
}

// PatientLTV is the lifetime-value breakdown of one patient.
type PatientLTV struct {
	PatientRevenue

	AvgMonthly   float64
	Historical   float64
	Projected    float64
	ROIvsCAC     float64
	Segment      string
	Status       string
	CACRecovered bool
}

// ValueSegment buckets a projected value.
func ValueSegment(projected float64) string {
	switch {
	case projected >= 5000:
		return SegmentVIP
	case projected >= 2000:
		return SegmentHigh
	case projected >= 500:
		return SegmentMedium
	default:
		return SegmentLow
	}
}

// RecencyStatus classifies days since the last visit. Patients without any
// visit are Churned.
func RecencyStatus(days int) string {
	switch {
	case days < 0:
		return StatusChurned
	case days <= activeStatusDays:
		return StatusActive
	case days <= atRiskStatusDays:
		return StatusAtRisk
	default:
		return StatusChurned
	}
}

// AnalyzeLTV computes the value breakdown of one patient.
func AnalyzeLTV(p PatientRevenue, cfg config.LTVConfig) PatientLTV {
	out := PatientLTV{PatientRevenue: p, Historical: p.TotalPaid}

	if p.ActiveMonths > 0 {
		out.AvgMonthly = p.TotalPaid / float64(p.ActiveMonths)
	}

	recent := p.DaysSinceLastVisit >= 0 && p.DaysSinceLastVisit <= cfg.ActiveDays
	if recent && p.ActiveMonths > 0 {
		out.Projected = out.AvgMonthly * float64(cfg.ProjectionMonths)
	} else {
		out.Projected = p.TotalPaid
	}
	out.Projected = max(out.Projected, 0)

	if cfg.AcquisitionCost > 0 {
		out.ROIvsCAC = (out.Historical - cfg.AcquisitionCost) / cfg.AcquisitionCost * 100
	}
	out.CACRecovered = out.Historical >= cfg.AcquisitionCost
	out.Segment = ValueSegment(out.Projected)
	out.Status = RecencyStatus(p.DaysSinceLastVisit)
	return out
}

// Entity renders the breakdown as a scored entity.
func (l PatientLTV) Entity() models.EntityScore {
	return models.EntityScore{
		EntityID: l.PatientID,
		Name:     l.Name,
		RawFeatures: map[string]float64{
			"total_paid":            l.TotalPaid,
			"total_revenue":         l.TotalRevenue,
			"active_months":         float64(l.ActiveMonths),
			"days_since_last_visit": float64(l.DaysSinceLastVisit),
			"total_appointments":    float64(l.TotalAppointments),
			"total_invoices":        float64(l.TotalInvoices),
			"total_treatments":      float64(l.TotalTreatments),
		},
		Score:               l.Projected,
		Tier:                l.Segment,
		ContributingFactors: l.factors(),
		RecommendedActions:  l.actions(),
		Details: map[string]any{
			"historical_ltv":      round(l.Historical, 2),
			"projected_ltv_5y":    round(l.Projected, 2),
			"avg_monthly_revenue": round(l.AvgMonthly, 2),
			"avg_invoice":         round(l.AvgInvoice, 2),
			"roi_vs_cac":          round(l.ROIvsCAC, 1),
			"value_segment":       l.Segment,
			"status":              l.Status,
			"first_visit":         dateOrEmpty(l.FirstVisit),
			"last_visit":          dateOrEmpty(l.LastVisit),
		},
	}
}

func (l PatientLTV) factors() []string {
	factors := []string{fmt.Sprintf("Segment: %s", l.Segment)}

	if l.DaysSinceLastVisit < 0 {
		factors = append(factors, "Status: Churned (no visits on record)")
	} else {
		factors = append(factors, fmt.Sprintf("Status: %s (%d days since last visit)", l.Status, l.DaysSinceLastVisit))
	}
	if l.CACRecovered {
		factors = append(factors, fmt.Sprintf("Acquisition cost recovered (ROI %.0f%%)", l.ROIvsCAC))
	} else {
		factors = append(factors, "Acquisition cost not yet recovered")
	}
	return factors
}

func (l PatientLTV) actions() []string {
	var actions []string

	switch l.Segment {
	case SegmentVIP:
		actions = append(actions, "Enrol in the VIP programme with priority scheduling")
	case SegmentHigh:
		actions = append(actions, "Offer a preventive maintenance plan")
	}
	switch l.Status {
	case StatusAtRisk:
		actions = append(actions, "Send a recall reminder before the patient lapses")
	case StatusChurned:
		actions = append(actions, "Include in the win-back campaign")
	}
	if !l.CACRecovered {
		actions = append(actions, "Promote follow-up treatments to recover the acquisition cost")
	}
	if len(actions) == 0 {
		actions = append(actions, "Maintain the standard follow-up")
	}
	return actions
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// BuildLTVReport aggregates a lifetime-value pass.
func BuildLTVReport(values []PatientLTV) models.LTVReport {
	report := models.LTVReport{
		TotalPatients: len(values),
		SegmentCounts: map[string]int{
			SegmentVIP:    0,
			SegmentHigh:   0,
			SegmentMedium: 0,
			SegmentLow:    0,
		},
		StatusCounts: map[string]int{
			StatusActive:  0,
			StatusAtRisk:  0,
			StatusChurned: 0,
		},
	}

	entities := make([]models.EntityScore, 0, len(values))
	for _, v := range values {
		report.TotalHistoricValue += v.Historical
		report.TotalProjected += v.Projected
		report.SegmentCounts[v.Segment]++
		report.StatusCounts[v.Status]++
		entities = append(entities, v.Entity())
	}
	if len(values) > 0 {
		report.AverageLTV = round(report.TotalHistoricValue/float64(len(values)), 2)
	}
	report.TotalHistoricValue = round(report.TotalHistoricValue, 2)
	report.TotalProjected = round(report.TotalProjected, 2)
	report.VIPCount = report.SegmentCounts[SegmentVIP]
	report.HighValueCount = report.SegmentCounts[SegmentHigh]
	report.TopPatients = Top(entities, topN)
	return report
}

// LTVInsightData is the payload handed to the insight generator.
func LTVInsightData(report models.LTVReport) map[string]any {
	return map[string]any{
		"total_patients":       report.TotalPatients,
		"avg_ltv":              report.AverageLTV,
		"vip_count":            report.VIPCount,
		"segment_distribution": report.SegmentCounts,
	}
}

// CohortMember is one patient's first visit and amount paid.
type CohortMember struct {
	FirstVisit time.Time
	Paid       float64
}

// CohortPeriod labels t as yyyy-MM or yyyy-Qn.
func CohortPeriod(t time.Time, by string) string {
	if by == CohortQuarter {
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	}
	return t.Format("2006-01")
}

// BuildCohorts groups members by first-visit period, newest first. Members
// without a first visit are skipped.
func BuildCohorts(members []CohortMember, by string) []models.Cohort {
	byPeriod := make(map[string]*models.Cohort)
	for _, m := range members {
		if m.FirstVisit.IsZero() {
			continue
		}
		key := CohortPeriod(m.FirstVisit, by)
		c, ok := byPeriod[key]
		if !ok {
			c = &models.Cohort{Period: key}
			byPeriod[key] = c
		}
		c.Size++
		c.TotalRevenue += m.Paid
	}

	out := make([]models.Cohort, 0, len(byPeriod))
	for _, c := range byPeriod {
		c.AverageLTV = round(c.TotalRevenue/float64(c.Size), 2)
		c.TotalRevenue = round(c.TotalRevenue, 2)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}
