// Package scoring holds the fixed, auditable scoring formulas for patient
// attrition risk, patient lifetime value and treatment profitability.
// Everything here is a pure function of its inputs.
package scoring

import (
	"math"
	"sort"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// SortByScore orders scores descending, ties broken by entity ID so the
// order is stable across runs.
func SortByScore(scores []models.EntityScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].EntityID < scores[j].EntityID
	})
}

// Top returns the n highest scores without modifying the input.
func Top(scores []models.EntityScore, n int) []models.EntityScore {
	out := make([]models.EntityScore, len(scores))
	copy(out, scores)
	SortByScore(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
