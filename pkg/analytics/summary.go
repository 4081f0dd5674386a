package analytics

import (
	"math"
	"sort"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// DepartmentScore is a department's average achievement on its latest
// reporting day.
type DepartmentScore struct {
	DeptID      string                  `json:"dept_id"`
	DateID      int                     `json:"date_id"`
	Achievement float64                 `json:"achievement_percent"`
	KPICount    int                     `json:"kpi_count"`
	Status      types.AchievementStatus `json:"status"`
}

// DepartmentScores averages actual/target over each department's facts on
// that department's latest date. Facts with a zero target are left out of the
// average; a department whose latest day has none is informational. The
// percentage is classified like a higher-is-better KPI against 100.
func DepartmentScores(obs []types.KPIObservation) []DepartmentScore {
	latest := make(map[string]int)
	for _, o := range obs {
		if o.DateID > latest[o.DeptID] {
			latest[o.DeptID] = o.DateID
		}
	}

	ratios := make(map[string][]float64, len(latest))
	for _, o := range obs {
		if o.DateID != latest[o.DeptID] {
			continue
		}
		if o.Target != 0 && !math.IsNaN(o.Actual) {
			ratios[o.DeptID] = append(ratios[o.DeptID], o.Actual/o.Target)
		}
	}

	out := make([]DepartmentScore, 0, len(latest))
	for dept, dateID := range latest {
		r := ratios[dept]
		s := DepartmentScore{DeptID: dept, DateID: dateID, KPICount: len(r)}
		if len(r) == 0 {
			s.Status = types.Informational
		} else {
			s.Achievement = mean(r) * 100
			s.Status = ClassifyAchievement(s.Achievement, 100, types.HigherIsBetter).Status
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeptID < out[j].DeptID })
	return out
}
