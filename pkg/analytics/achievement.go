package analytics

import (
	"math"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Classification thresholds.
const (
	// HigherAtRiskFloor is the lowest actual/target ratio still counted as
	// at risk for higher-is-better KPIs.
	HigherAtRiskFloor = 0.8

	// LowerBreachMultiplier is how far above target a lower-is-better KPI
	// may go before it is in breach.
	LowerBreachMultiplier = 1.5
)

// Achievement is the target classification of one KPI reading.
type Achievement struct {
	Status types.AchievementStatus `json:"status"`
	Ratio  float64                 `json:"ratio"`
}

// ClassifyAchievement compares actual to target in the KPI's direction. A
// zero target is informational. An unknown direction is treated as
// higher-is-better, the column default.
func ClassifyAchievement(actual, target float64, dir types.TargetDirection) Achievement {
	if target == 0 || math.IsNaN(target) || math.IsNaN(actual) {
		return Achievement{Status: types.Informational}
	}
	ratio := actual / target

	if dir == types.LowerIsBetter {
		switch {
		case actual <= target:
			return Achievement{Status: types.OnTarget, Ratio: ratio}
		case actual <= target*LowerBreachMultiplier:
			return Achievement{Status: types.AtRisk, Ratio: ratio}
		default:
			return Achievement{Status: types.Breach, Ratio: ratio}
		}
	}

	switch {
	case ratio >= 1:
		return Achievement{Status: types.OnTarget, Ratio: ratio}
	case ratio >= HigherAtRiskFloor:
		return Achievement{Status: types.AtRisk, Ratio: ratio}
	default:
		return Achievement{Status: types.Breach, Ratio: ratio}
	}
}

// Readings returns the observations that carry an actual value, in order.
func Readings(obs []types.KPIObservation) []types.KPIObservation {
	out := make([]types.KPIObservation, 0, len(obs))
	for _, o := range obs {
		if !math.IsNaN(o.Actual) {
			out = append(out, o)
		}
	}
	return out
}
