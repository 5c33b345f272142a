package models

// Churn risk tiers.
const (
	TierLow      = "low"
	TierMedium   = "medium"
	TierHigh     = "high"
	TierCritical = "critical"
)

// EntityScore is a scored patient or treatment with its explanation.
type EntityScore struct {
	EntityID            string             `json:"entity_id"`
	Name                string             `json:"name"`
	RawFeatures         map[string]float64 `json:"raw_features"`
	Score               float64            `json:"score"`
	Tier                string             `json:"tier"`
	ContributingFactors []string           `json:"contributing_factors"`
	RecommendedActions  []string           `json:"recommended_actions"`
	Details             map[string]any     `json:"details,omitempty"`
}

// ChurnReport summarizes a churn scoring pass.
type ChurnReport struct {
	TotalScored  int            `json:"total_patients_analyzed"`
	AtRisk       int            `json:"patients_at_risk"`
	TierCounts   map[string]int `json:"tier_counts"`
	ValueAtRisk  float64        `json:"value_at_risk"`
	TopAtRisk    []EntityScore  `json:"top_10_at_risk"`
	Insights     string         `json:"ai_insights,omitempty"`
	InsightError string         `json:"ai_insights_error,omitempty"`
}

// LTVReport summarizes a lifetime-value pass.
type LTVReport struct {
	TotalPatients      int            `json:"total_patients"`
	TotalHistoricValue float64        `json:"total_historic_value"`
	TotalProjected     float64        `json:"total_projected_value"`
	AverageLTV         float64        `json:"average_ltv"`
	VIPCount           int            `json:"vip_patients"`
	HighValueCount     int            `json:"high_value_patients"`
	SegmentCounts      map[string]int `json:"segment_distribution"`
	StatusCounts       map[string]int `json:"status_distribution"`
	TopPatients        []EntityScore  `json:"top_10_patients"`
	Insights           string         `json:"ai_insights,omitempty"`
	InsightError       string         `json:"ai_insights_error,omitempty"`
}

// Cohort groups patients by first-visit period.
type Cohort struct {
	Period       string  `json:"cohort"`
	Size         int     `json:"cohort_size"`
	AverageLTV   float64 `json:"avg_ltv"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ROIReport summarizes treatment profitability.
type ROIReport struct {
	TotalTreatments int            `json:"total_treatments"`
	AverageROI      float64        `json:"avg_roi"`
	TotalProfit     float64        `json:"total_profit"`
	ClassCounts     map[string]int `json:"classification_distribution"`
	TopTreatments   []EntityScore  `json:"top_10_treatments"`
	LowPerformers   []EntityScore  `json:"low_performers"`
	Recommendations []string       `json:"recommendations"`
	Insights        string         `json:"ai_insights,omitempty"`
	InsightError    string         `json:"ai_insights_error,omitempty"`
}

// Dashboard bundles the headline numbers of every engine.
type Dashboard struct {
	Churn ChurnReport `json:"churn"`
	LTV   LTVReport   `json:"ltv"`
	ROI   ROIReport   `json:"roi"`
}
