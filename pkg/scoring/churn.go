package scoring

import (
	"fmt"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

const (
	missedStep          = 0.1
	missedCap           = 0.25
	balanceFloor        = 500.0
	balanceScale        = 2000.0
	complianceFloor     = 0.5
	contactDays         = 180
	visitAlertDays      = 90
	missedFactorMinimum = 2
	urgentScore         = 0.7
	offerScore          = 0.5
	daysPerYear         = 365.0
)

// PatientFeatures are the behavioural inputs of the churn model.
type PatientFeatures struct {
	PatientID string
	Name      string
	Contact   string

	// MissedAppointments counts no-shows in the last 6 months.
	MissedAppointments int
	// DaysSinceLastVisit counts days since the last completed appointment.
	DaysSinceLastVisit int
	// DaysSinceLastContact counts days since any appointment or invoice.
	DaysSinceLastContact int
	OutstandingBalance   float64
	// TreatmentCompliance is finished/total treatments in [0,1]; 1 when unknown.
	TreatmentCompliance float64
}

// ChurnSubScores are the independently clamped factor scores.
type ChurnSubScores struct {
	Missed        float64 `json:"missed_appointments"`
	Inactivity    float64 `json:"inactivity"`
	Balance       float64 `json:"outstanding_balance"`
	Compliance    float64 `json:"treatment_compliance"`
	Communication float64 `json:"communication"`
}

// SubScores computes each factor on its own.
func (f PatientFeatures) SubScores(inactivityDays int) ChurnSubScores {
	var s ChurnSubScores

	if f.MissedAppointments > 0 {
		s.Missed = min(float64(f.MissedAppointments)*missedStep, missedCap)
	}
	if f.DaysSinceLastVisit > inactivityDays {
		s.Inactivity = clamp01(float64(f.DaysSinceLastVisit-inactivityDays) / daysPerYear)
	}
	if f.OutstandingBalance > balanceFloor {
		s.Balance = clamp01(f.OutstandingBalance / balanceScale)
	}
	if c := clamp01(f.TreatmentCompliance); c < complianceFloor {
		s.Compliance = 1 - c
	}
	if f.DaysSinceLastContact > contactDays {
		s.Communication = clamp01(float64(f.DaysSinceLastContact) / daysPerYear)
	}
	return s
}

// Weighted combines sub-scores into a probability in [0,1].
func (s ChurnSubScores) Weighted(cfg config.ChurnConfig) float64 {
	return clamp01(s.Missed*cfg.WeightMissed +
		s.Inactivity*cfg.WeightInactivity +
		s.Balance*cfg.WeightBalance +
		s.Compliance*cfg.WeightCompliance +
		s.Communication*cfg.WeightCommunication)
}

// ChurnTier buckets a score. Each tier includes its lower bound.
func ChurnTier(score float64) string {
	switch {
	case score >= 0.7:
		return models.TierCritical
	case score >= 0.5:
		return models.TierHigh
	case score >= 0.3:
		return models.TierMedium
	default:
		return models.TierLow
	}
}

// ScoreChurn scores one patient.
func ScoreChurn(f PatientFeatures, cfg config.ChurnConfig) models.EntityScore {
	sub := f.SubScores(cfg.InactivityDays)
	score := sub.Weighted(cfg)

	return models.EntityScore{
		EntityID: f.PatientID,
		Name:     f.Name,
		RawFeatures: map[string]float64{
			"missed_appointments":     float64(f.MissedAppointments),
			"days_since_last_visit":   float64(f.DaysSinceLastVisit),
			"days_since_last_contact": float64(f.DaysSinceLastContact),
			"outstanding_balance":     f.OutstandingBalance,
			"treatment_compliance":    f.TreatmentCompliance,
		},
		Score:               score,
		Tier:                ChurnTier(score),
		ContributingFactors: churnFactors(f, cfg.InactivityDays),
		RecommendedActions:  retentionActions(score, f, cfg.InactivityDays),
		Details: map[string]any{
			"contact":           f.Contact,
			"churn_probability": round(score, 3),
			"sub_scores":        sub,
		},
	}
}

func churnFactors(f PatientFeatures, inactivityDays int) []string {
	factors := make([]string, 0)

	if f.MissedAppointments >= missedFactorMinimum {
		factors = append(factors, fmt.Sprintf("High: %d recent missed appointments", f.MissedAppointments))
	}
	switch {
	case f.DaysSinceLastVisit > inactivityDays:
		factors = append(factors, fmt.Sprintf("Critical: %d days without a visit", f.DaysSinceLastVisit))
	case f.DaysSinceLastVisit > visitAlertDays:
		factors = append(factors, fmt.Sprintf("Alert: %d days without a visit", f.DaysSinceLastVisit))
	}
	if f.OutstandingBalance > balanceFloor {
		factors = append(factors, fmt.Sprintf("Debt: €%.2f outstanding", f.OutstandingBalance))
	}
	if c := clamp01(f.TreatmentCompliance); c < complianceFloor {
		factors = append(factors, fmt.Sprintf("Low engagement: %.0f%% of treatments completed", c*100))
	}
	if f.DaysSinceLastContact > contactDays {
		factors = append(factors, fmt.Sprintf("No communication: %d days", f.DaysSinceLastContact))
	}
	return factors
}

func retentionActions(score float64, f PatientFeatures, inactivityDays int) []string {
	var actions []string

	if score >= urgentScore {
		actions = append(actions,
			"URGENT: personal contact from the dentist within 24h",
			"Priority phone call")
	}
	if score >= offerScore {
		actions = append(actions,
			"Send a personalised email with a special offer",
			"WhatsApp reminder about the importance of follow-up")
	}
	if f.DaysSinceLastVisit > inactivityDays {
		actions = append(actions, fmt.Sprintf("Schedule a check-up (%d days without an appointment)", f.DaysSinceLastVisit))
	}
	if f.OutstandingBalance > balanceFloor {
		actions = append(actions, fmt.Sprintf("Offer a payment plan for €%.2f", f.OutstandingBalance))
	}
	if len(actions) == 0 {
		actions = append(actions, "Keep regular contact and preventive follow-up")
	}
	return actions
}

// AtRisk returns the scores at or above cutoff, highest first.
func AtRisk(scores []models.EntityScore, cutoff float64) []models.EntityScore {
	out := make([]models.EntityScore, 0)
	for _, s := range scores {
		if s.Score >= cutoff {
			out = append(out, s)
		}
	}
	SortByScore(out)
	return out
}

// FilterTier keeps the scores of one tier; an empty tier keeps everything.
func FilterTier(scores []models.EntityScore, tier string) []models.EntityScore {
	if tier == "" {
		return scores
	}
	out := make([]models.EntityScore, 0)
	for _, s := range scores {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out
}

// BuildChurnReport aggregates every scored patient. Tier counts cover all
// patients; the at-risk list and value at risk cover those above the cutoff.
func BuildChurnReport(scores []models.EntityScore, cutoff float64) models.ChurnReport {
	report := models.ChurnReport{
		TotalScored: len(scores),
		TierCounts: map[string]int{
			models.TierCritical: 0,
			models.TierHigh:     0,
			models.TierMedium:   0,
			models.TierLow:      0,
		},
	}
	for _, s := range scores {
		report.TierCounts[s.Tier]++
	}

	atRisk := AtRisk(scores, cutoff)
	report.AtRisk = len(atRisk)
	for _, s := range atRisk {
		report.ValueAtRisk += s.RawFeatures["outstanding_balance"]
	}
	report.ValueAtRisk = round(report.ValueAtRisk, 2)

	if len(atRisk) > 10 {
		atRisk = atRisk[:10]
	}
	report.TopAtRisk = atRisk
	return report
}

// ChurnInsightData is the payload handed to the insight generator.
func ChurnInsightData(report models.ChurnReport) map[string]any {
	names := make([]string, 0, 5)
	for i, s := range report.TopAtRisk {
		if i == 5 {
			break
		}
		names = append(names, s.Name)
	}
	return map[string]any{
		"at_risk_count":   report.AtRisk,
		"critical":        report.TierCounts[models.TierCritical],
		"sample_patients": names,
	}
}
