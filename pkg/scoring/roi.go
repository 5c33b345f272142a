package scoring

import (
	"fmt"
	"sort"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// Profitability classes.
const (
	ClassExcellent = "Excellent"
	ClassGood      = "Good"
	ClassFair      = "Fair"
	ClassPoor      = "Poor"
)

const (
	defaultDurationMinutes = 60.0
	recommendationCount    = 3
)

// TreatmentStats are the aggregates of one completed treatment type.
type TreatmentStats struct {
	Code           string
	Name           string
	TimesPerformed int
	AvgPrice       float64
	TotalRevenue   float64
	// AvgDurationMinutes is zero when no duration is recorded.
	AvgDurationMinutes float64
}

// TreatmentROI is the cost and return breakdown of one treatment type.
type TreatmentROI struct {
	TreatmentStats

	Hours          float64
	LaborCost      float64
	EquipmentCost  float64
	MaterialCost   float64
	TotalCost      float64
	NetProfit      float64
	TotalNetProfit float64
	MarginPercent  float64
	ROIPercent     float64
	Classification string
}

// ROIClass buckets a return percentage.
func ROIClass(roi float64) string {
	switch {
	case roi >= 100:
		return ClassExcellent
	case roi >= 50:
		return ClassGood
	case roi >= 20:
		return ClassFair
	default:
		return ClassPoor
	}
}

// AnalyzeROI computes the cost model for one treatment type.
func AnalyzeROI(t TreatmentStats, cfg config.ROIConfig) TreatmentROI {
	minutes := t.AvgDurationMinutes
	if minutes <= 0 {
		minutes = defaultDurationMinutes
	}

	r := TreatmentROI{TreatmentStats: t, Hours: minutes / 60}
	r.LaborCost = r.Hours * cfg.LaborCostPerHour
	r.EquipmentCost = r.Hours * cfg.EquipmentCostPerHour
	r.MaterialCost = t.AvgPrice * cfg.MaterialCostRatio
	r.TotalCost = r.LaborCost + r.EquipmentCost + r.MaterialCost
	r.NetProfit = t.AvgPrice - r.TotalCost
	r.TotalNetProfit = r.NetProfit * float64(t.TimesPerformed)

	if r.TotalCost > 0 {
		r.ROIPercent = r.NetProfit / r.TotalCost * 100
	}
	if t.AvgPrice > 0 {
		r.MarginPercent = r.NetProfit / t.AvgPrice * 100
	}
	r.Classification = ROIClass(r.ROIPercent)
	return r
}

// Entity renders the breakdown as a scored entity.
func (r TreatmentROI) Entity() models.EntityScore {
	e := models.EntityScore{
		EntityID: r.Code,
		Name:     r.Name,
		RawFeatures: map[string]float64{
			"times_performed":      float64(r.TimesPerformed),
			"avg_price":            r.AvgPrice,
			"total_revenue":        r.TotalRevenue,
			"avg_duration_minutes": r.AvgDurationMinutes,
		},
		Score: r.ROIPercent,
		Tier:  r.Classification,
		ContributingFactors: []string{
			fmt.Sprintf("Margin: %.1f%%", r.MarginPercent),
			fmt.Sprintf("Cost per treatment: €%.2f", r.TotalCost),
			fmt.Sprintf("Performed %d times", r.TimesPerformed),
		},
		Details: map[string]any{
			"labor_cost":       round(r.LaborCost, 2),
			"equipment_cost":   round(r.EquipmentCost, 2),
			"material_cost":    round(r.MaterialCost, 2),
			"total_cost":       round(r.TotalCost, 2),
			"net_profit":       round(r.NetProfit, 2),
			"total_net_profit": round(r.TotalNetProfit, 2),
			"margin_percent":   round(r.MarginPercent, 1),
			"roi_percent":      round(r.ROIPercent, 1),
			"classification":   r.Classification,
		},
	}

	switch r.Classification {
	case ClassExcellent:
		e.RecommendedActions = []string{"Promote this treatment"}
	case ClassPoor:
		e.RecommendedActions = []string{"Review costs or raise the price"}
	default:
		e.RecommendedActions = []string{"Keep current pricing under review"}
	}
	return e
}

// LowPerformers returns treatments with ROI below threshold, worst first.
func LowPerformers(results []TreatmentROI, threshold float64) []TreatmentROI {
	out := make([]TreatmentROI, 0)
	for _, r := range results {
		if r.ROIPercent < threshold {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROIPercent < out[j].ROIPercent })
	return out
}

// StarTreatments returns the n treatments with the highest total profit.
func StarTreatments(results []TreatmentROI, n int) []TreatmentROI {
	out := make([]TreatmentROI, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalNetProfit > out[j].TotalNetProfit })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ROIRecommendations lists the worst low performers and the star treatments.
func ROIRecommendations(results []TreatmentROI, threshold float64) []string {
	var recs []string

	low := LowPerformers(results, threshold)
	if len(low) > 0 {
		recs = append(recs, fmt.Sprintf("%d treatments with ROI < %.0f%%:", len(low), threshold))
		for i, r := range low {
			if i == recommendationCount {
				break
			}
			recs = append(recs, fmt.Sprintf("  - %s: %.1f%% ROI, review costs or raise the price", r.Name, r.ROIPercent))
		}
	}

	stars := StarTreatments(results, recommendationCount)
	if len(stars) > 0 {
		recs = append(recs, "Star treatments (highest total profit):")
		for _, r := range stars {
			recs = append(recs, fmt.Sprintf("  - %s: €%.2f total profit, promote more", r.Name, r.TotalNetProfit))
		}
	}
	return recs
}

// BuildROIReport aggregates a profitability pass.
func BuildROIReport(results []TreatmentROI, cfg config.ROIConfig) models.ROIReport {
	report := models.ROIReport{
		TotalTreatments: len(results),
		ClassCounts: map[string]int{
			ClassExcellent: 0,
			ClassGood:      0,
			ClassFair:      0,
			ClassPoor:      0,
		},
		LowPerformers:   make([]models.EntityScore, 0),
		Recommendations: ROIRecommendations(results, cfg.LowPerformerROI),
	}

	entities := make([]models.EntityScore, 0, len(results))
	var roiSum float64
	for _, r := range results {
		roiSum += r.ROIPercent
		report.TotalProfit += r.TotalNetProfit
		report.ClassCounts[r.Classification]++
		entities = append(entities, r.Entity())
	}
	if len(results) > 0 {
		report.AverageROI = round(roiSum/float64(len(results)), 1)
	}
	report.TotalProfit = round(report.TotalProfit, 2)
	report.TopTreatments = Top(entities, topN)

	for _, r := range LowPerformers(results, cfg.LowPerformerROI) {
		report.LowPerformers = append(report.LowPerformers, r.Entity())
	}
	return report
}

// ROIInsightData is the payload handed to the insight generator.
func ROIInsightData(report models.ROIReport) map[string]any {
	top := make([]string, 0, 3)
	for i, e := range report.TopTreatments {
		if i == 3 {
			break
		}
		top = append(top, e.Name)
	}
	return map[string]any{
		"total_treatments":    report.TotalTreatments,
		"avg_roi":             report.AverageROI,
		"low_performer_count": len(report.LowPerformers),
		"top_treatments":      top,
	}
}
