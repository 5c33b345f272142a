package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func healthyPatient(id string) PatientFeatures {
	return PatientFeatures{
		PatientID:            id,
		Name:                 "Patient " + id,
		DaysSinceLastVisit:   30,
		DaysSinceLastContact: 30,
		TreatmentCompliance:  1,
	}
}

func TestChurnTier_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.7, models.TierCritical},
		{0.69999, models.TierHigh},
		{0.5, models.TierHigh},
		{0.49999, models.TierMedium},
		{0.3, models.TierMedium},
		{0.29999, models.TierLow},
		{0, models.TierLow},
		{1, models.TierCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChurnTier(tt.score), "score %v", tt.score)
	}
}

func TestScoreChurn_MissedAppointmentsCapped(t *testing.T) {
	f := healthyPatient("1")
	f.MissedAppointments = 3

	s := ScoreChurn(f, testChurnConfig())

	sub := f.SubScores(180)
	assert.InDelta(t, 0.25, sub.Missed, 1e-9)
	assert.InDelta(t, 0.0625, s.Score, 1e-9)
	assert.Equal(t, models.TierLow, s.Tier)
	assert.Contains(t, s.ContributingFactors, "High: 3 recent missed appointments")
	assert.Equal(t, []string{"Keep regular contact and preventive follow-up"}, s.RecommendedActions)
}

func TestScoreChurn_HealthyPatientScoresZero(t *testing.T) {
	s := ScoreChurn(healthyPatient("1"), testChurnConfig())

	assert.Zero(t, s.Score)
	assert.Equal(t, models.TierLow, s.Tier)
	assert.Empty(t, s.ContributingFactors)
}

func TestScoreChurn_WorstCase(t *testing.T) {
	f := PatientFeatures{
		PatientID:            "9",
		MissedAppointments:   10,
		DaysSinceLastVisit:   1000,
		DaysSinceLastContact: 1000,
		OutstandingBalance:   5000,
		TreatmentCompliance:  0,
	}
	s := ScoreChurn(f, testChurnConfig())

	// 0.25*0.25 + 0.30 + 0.20 + 0.15 + 0.10
	assert.InDelta(t, 0.8125, s.Score, 1e-9)
	assert.Equal(t, models.TierCritical, s.Tier)
	assert.Len(t, s.ContributingFactors, 5)
	assert.Contains(t, s.ContributingFactors, "Critical: 1000 days without a visit")
	assert.Contains(t, s.ContributingFactors, "Debt: €5000.00 outstanding")
	assert.Contains(t, s.ContributingFactors, "Low engagement: 0% of treatments completed")
	assert.Contains(t, s.RecommendedActions, "URGENT: personal contact from the dentist within 24h")
	assert.Contains(t, s.RecommendedActions, "Send a personalised email with a special offer")
	assert.Contains(t, s.RecommendedActions, "Offer a payment plan for €5000.00")
}

func TestScoreChurn_SubScoreThresholds(t *testing.T) {
	f := healthyPatient("1")
	f.DaysSinceLastVisit = 180
	f.DaysSinceLastContact = 180
	f.OutstandingBalance = 500
	f.TreatmentCompliance = 0.5

	sub := f.SubScores(180)
	assert.Zero(t, sub.Inactivity)
	assert.Zero(t, sub.Communication)
	assert.Zero(t, sub.Balance)
	assert.Zero(t, sub.Compliance)

	f.DaysSinceLastVisit = 120
	s := ScoreChurn(f, testChurnConfig())
	assert.Contains(t, s.ContributingFactors, "Alert: 120 days without a visit")
}

func TestScoreChurn_MonotonicInEachFeature(t *testing.T) {
	cfg := testChurnConfig()
	base := healthyPatient("1")

	bump := []func(*PatientFeatures, int){
		func(f *PatientFeatures, i int) { f.MissedAppointments = i },
		func(f *PatientFeatures, i int) { f.DaysSinceLastVisit = 100 + i*40 },
		func(f *PatientFeatures, i int) { f.DaysSinceLastContact = 100 + i*40 },
		func(f *PatientFeatures, i int) { f.OutstandingBalance = float64(i) * 300 },
		func(f *PatientFeatures, i int) { f.TreatmentCompliance = 1 - float64(i)*0.1 },
	}

	for n, apply := range bump {
		prev := -1.0
		for i := 0; i <= 10; i++ {
			f := base
			apply(&f, i)
			s := ScoreChurn(f, cfg).Score
			require.GreaterOrEqual(t, s, prev, "feature %d step %d", n, i)
			require.GreaterOrEqual(t, s, 0.0)
			require.LessOrEqual(t, s, 1.0)
			prev = s
		}
	}
}

func TestScoreChurn_ComplianceOutOfRangeIsClamped(t *testing.T) {
	f := healthyPatient("1")
	f.TreatmentCompliance = -3

	sub := f.SubScores(180)
	assert.InDelta(t, 1.0, sub.Compliance, 1e-9)
}

func TestBuildChurnReport(t *testing.T) {
	cfg := testChurnConfig()

	critical := PatientFeatures{
		PatientID: "c", Name: "Critical", MissedAppointments: 5,
		DaysSinceLastVisit: 900, DaysSinceLastContact: 900,
		OutstandingBalance: 2500, TreatmentCompliance: 0,
	}
	medium := healthyPatient("m")
	medium.Name = "Medium"
	medium.DaysSinceLastVisit = 600
	medium.OutstandingBalance = 1000
	medium.TreatmentCompliance = 0.2

	scores := []models.EntityScore{
		ScoreChurn(healthyPatient("a"), cfg),
		ScoreChurn(medium, cfg),
		ScoreChurn(critical, cfg),
		ScoreChurn(healthyPatient("b"), cfg),
	}

	report := BuildChurnReport(scores, cfg.ReportCutoff)

	assert.Equal(t, 4, report.TotalScored)
	assert.Equal(t, 2, report.AtRisk)
	assert.Equal(t, 1, report.TierCounts[models.TierCritical])
	assert.Equal(t, 2, report.TierCounts[models.TierLow])
	assert.InDelta(t, 3500.0, report.ValueAtRisk, 1e-9)
	require.Len(t, report.TopAtRisk, 2)
	assert.Equal(t, "c", report.TopAtRisk[0].EntityID)
	assert.Equal(t, "m", report.TopAtRisk[1].EntityID)

	data := ChurnInsightData(report)
	assert.Equal(t, 2, data["at_risk_count"])
	assert.Equal(t, 1, data["critical"])
	assert.Equal(t, []string{"Critical", "Medium"}, data["sample_patients"])
}

func TestBuildChurnReport_TopIsCappedAtTen(t *testing.T) {
	cfg := testChurnConfig()
	var scores []models.EntityScore
	for i := 0; i < 15; i++ {
		f := healthyPatient(string(rune('a' + i)))
		f.DaysSinceLastVisit = 1000
		f.DaysSinceLastContact = 1000
		f.TreatmentCompliance = 0
		scores = append(scores, ScoreChurn(f, cfg))
	}

	report := BuildChurnReport(scores, cfg.ReportCutoff)
	assert.Equal(t, 15, report.AtRisk)
	assert.Len(t, report.TopAtRisk, 10)
}

func TestFilterTier(t *testing.T) {
	scores := []models.EntityScore{{Tier: models.TierHigh}, {Tier: models.TierLow}}

	assert.Len(t, FilterTier(scores, ""), 2)
	assert.Len(t, FilterTier(scores, models.TierHigh), 1)
	assert.Empty(t, FilterTier(scores, models.TierCritical))
}
