package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Insight generation defaults.
const (
	DefaultLookbackDays   = 7
	InsightTrendPeriods   = 3
	InsightTrendThreshold = 10.0
)

// Metric names of the aggregate work-item insights.
const (
	MetricOverdueWork  = "overdue_work_items"
	MetricHighRiskWork = "high_risk_work_items"
)

// Generator turns KPI observations and work items into insights.
type Generator struct {
	LookbackDays   int
	TrendPeriods   int
	TrendThreshold float64
	Terminal       types.StatusSet
	Now            func() time.Time
}

// NewGenerator builds a generator from configuration.
func NewGenerator(cfg types.Config) *Generator {
	return &Generator{
		LookbackDays:   cfg.LookbackDays,
		TrendPeriods:   InsightTrendPeriods,
		TrendThreshold: InsightTrendThreshold,
		Terminal:       cfg.TerminalSet(),
		Now:            time.Now,
	}
}

// Input is the data one Generate call looks at. DeptID scopes both the
// observations and the work items; empty means organization-wide.
type Input struct {
	DeptID       string
	Observations []types.KPIObservation
	WorkItems    []types.WorkItem
}

// Generate returns the insights for in, in generation order: per KPI (by KPI
// id) a target insight then a trend insight, then the overdue and high-risk
// aggregates. It never fails; missing data yields fewer insights.
func (g *Generator) Generate(in Input) []types.Insight {
	now := g.now()
	lookback := g.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	today := dateid.ToDateID(now)
	since := dateid.ToDateID(now.AddDate(0, 0, -lookback))

	insights := []types.Insight{}

	byKPI := make(map[string][]types.KPIObservation)
	for _, o := range in.Observations {
		if o.DateID < since || !inScope(in.DeptID, o.DeptID) {
			continue
		}
		byKPI[o.KPIID] = append(byKPI[o.KPIID], o)
	}
	kpiIDs := make([]string, 0, len(byKPI))
	for id := range byKPI {
		kpiIDs = append(kpiIDs, id)
	}
	sort.Strings(kpiIDs)

	for _, id := range kpiIDs {
		obs := byKPI[id]
		sort.SliceStable(obs, func(i, j int) bool {
			if obs[i].DateID != obs[j].DateID {
				return obs[i].DateID < obs[j].DateID
			}
			return obs[i].CreatedAt.Before(obs[j].CreatedAt)
		})
		latest := obs[len(obs)-1]

		if ins, ok := targetInsight(latest); ok {
			ins.CreatedAt = now
			insights = append(insights, ins)
		}
		if ins, ok := g.trendInsight(obs, lookback); ok {
			ins.CreatedAt = now
			insights = append(insights, ins)
		}
	}

	overdue, risky := 0, 0
	for _, w := range in.WorkItems {
		if !inScope(in.DeptID, w.DeptID) || g.terminal().Has(w.Status) {
			continue
		}
		if w.DueDateID > 0 && w.DueDateID < today {
			overdue++
		}
		if w.RiskLevel == types.RiskHigh {
			risky++
		}
	}
	if overdue > 0 {
		insights = append(insights, types.Insight{
			DeptID:     in.DeptID,
			Category:   types.InsightDanger,
			Severity:   types.SeverityHigh,
			MetricName: MetricOverdueWork,
			Text:       fmt.Sprintf("%s overdue - action required", plural(overdue, "work item")),
			CreatedAt:  now,
		})
	}
	if risky > 0 {
		insights = append(insights, types.Insight{
			DeptID:     in.DeptID,
			Category:   types.InsightWarning,
			Severity:   types.SeverityMedium,
			MetricName: MetricHighRiskWork,
			Text:       fmt.Sprintf("%s at high risk - monitor closely", plural(risky, "work item")),
			CreatedAt:  now,
		})
	}
	return insights
}

func targetInsight(o types.KPIObservation) (types.Insight, bool) {
	a := ClassifyAchievement(o.Actual, o.Target, o.TargetDirection)
	ins := types.Insight{DeptID: o.DeptID, MetricName: o.KPIName}
	switch a.Status {
	case types.OnTarget:
		ins.Category = types.InsightSuccess
		ins.Severity = types.SeverityLow
		ins.Text = fmt.Sprintf("%s: target met (%.1f vs %.1f)", o.KPIName, o.Actual, o.Target)
	case types.Breach:
		ins.Category = types.InsightDanger
		ins.Severity = types.SeverityHigh
		side := "below"
		if o.TargetDirection == types.LowerIsBetter {
			side = "above"
		}
		ins.Text = fmt.Sprintf("%s: well %s target (%.1f vs %.1f)", o.KPIName, side, o.Actual, o.Target)
	default:
		return types.Insight{}, false
	}
	return ins, true
}

func (g *Generator) trendInsight(obs []types.KPIObservation, lookback int) (types.Insight, bool) {
	obs = Readings(obs)
	if len(obs) < 3 {
		return types.Insight{}, false
	}
	series := make([]float64, len(obs))
	for i, o := range obs {
		series[i] = o.Actual
	}
	periods := g.TrendPeriods
	if periods <= 0 {
		periods = InsightTrendPeriods
	}
	threshold := g.TrendThreshold
	if threshold <= 0 {
		threshold = InsightTrendThreshold
	}

	tr := ClassifyTrend(series, periods)
	if math.Abs(tr.Change) <= threshold {
		return types.Insight{}, false
	}
	latest := obs[len(obs)-1]
	ins := types.Insight{DeptID: latest.DeptID, MetricName: latest.KPIName, Severity: types.SeverityMedium}
	switch tr.Direction {
	case types.TrendUp:
		ins.Category = types.InsightInfo
		ins.Text = fmt.Sprintf("%s: up %.1f%% over the last %d days", latest.KPIName, math.Abs(tr.Change), lookback)
	case types.TrendDown:
		ins.Category = types.InsightWarning
		ins.Text = fmt.Sprintf("%s: down %.1f%% over the last %d days", latest.KPIName, math.Abs(tr.Change), lookback)
	default:
		return types.Insight{}, false
	}
	return ins, true
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Generator) terminal() types.StatusSet {
	if g.Terminal == nil {
		return types.Config{}.TerminalSet()
	}
	return g.Terminal
}

func inScope(scope, dept string) bool {
	return scope == "" || scope == dept
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// SortBySeverity orders insights high, medium, low, keeping generation order
// within a severity.
func SortBySeverity(insights []types.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Severity.Rank() < insights[j].Severity.Rank()
	})
}

// Top returns the first n insights after sorting by severity.
func Top(insights []types.Insight, n int) []types.Insight {
	out := append([]types.Insight(nil), insights...)
	SortBySeverity(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
