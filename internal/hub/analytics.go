package hub

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/analytics"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Insights generates the current insights for deptID (empty for every
// department the caller may see), most severe first. With save set they
// are also appended to the insight log.
func (s *Service) Insights(ctx context.Context, deptID string, save bool) ([]types.Insight, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return nil, err
	}
	g := s.generator()
	lookback := g.LookbackDays
	if lookback <= 0 {
		lookback = analytics.DefaultLookbackDays
	}
	since := dateid.ToDateID(s.now().AddDate(0, 0, -lookback))

	obs, err := s.store.Observations(ctx, sqlite.ObservationFilter{DeptID: scope, SinceID: since})
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListWorkItems(ctx, scope)
	if err != nil {
		return nil, err
	}
	if orphans, err := s.store.OrphanFactCount(ctx); err == nil && orphans > 0 {
		s.log.Warn("kpi facts without a kpi definition are ignored", "count", orphans)
	}

	insights := g.Generate(analytics.Input{DeptID: scope, Observations: obs, WorkItems: items})
	analytics.SortBySeverity(insights)
	if save && len(insights) > 0 {
		if insights, err = s.store.SaveInsights(ctx, insights); err != nil {
			return nil, err
		}
	}
	s.log.Debug("insights generated", "dept", scope, "count", len(insights), "saved", save)
	return insights, nil
}

// ListInsights returns logged insights visible to the caller.
func (s *Service) ListInsights(ctx context.Context, deptID string, unreadOnly bool, limit int) ([]types.Insight, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return nil, err
	}
	return s.store.ListInsights(ctx, sqlite.InsightFilter{DeptID: scope, UnreadOnly: unreadOnly, Limit: limit})
}

// MarkInsightRead flags a logged insight as read. Department-scoped callers
// may only mark insights of their own department.
func (s *Service) MarkInsightRead(ctx context.Context, id string) error {
	sess, scope, err := s.session(ctx, "")
	if err != nil {
		return err
	}
	if !sess.Role.OrgWide() {
		visible, err := s.store.ListInsights(ctx, sqlite.InsightFilter{DeptID: scope})
		if err != nil {
			return err
		}
		found := false
		for _, in := range visible {
			if in.InsightID == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("insight %s: %w", id, types.ErrNotFound)
		}
	}
	return s.store.MarkInsightRead(ctx, id)
}

// Summary is the executive overview: per-department achievement on each
// department's latest reporting day and work items counted by status.
type Summary struct {
	DeptID      string                      `json:"dept_id,omitempty"`
	Departments []analytics.DepartmentScore `json:"departments"`
	WorkStatus  map[types.WorkStatus]int    `json:"work_status"`
	WorkTotal   int                         `json:"work_total"`
}

// Summary builds the executive summary for deptID.
func (s *Service) Summary(ctx context.Context, deptID string) (Summary, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return Summary{}, err
	}
	obs, err := s.store.Observations(ctx, sqlite.ObservationFilter{DeptID: scope})
	if err != nil {
		return Summary{}, err
	}
	counts, err := s.store.WorkStatusCounts(ctx, scope)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{DeptID: scope, Departments: analytics.DepartmentScores(obs), WorkStatus: counts}
	for _, n := range counts {
		out.WorkTotal += n
	}
	return out, nil
}

// TrendPoint is one fact of a trend series with its rolling mean.
type TrendPoint struct {
	DateID  int     `json:"date_id"`
	Actual  float64 `json:"actual_value"`
	Target  float64 `json:"target_value"`
	Rolling float64 `json:"rolling_mean"`
}

// ForecastPoint is one projected day.
type ForecastPoint struct {
	DateID int     `json:"date_id"`
	Value  float64 `json:"value"`
}

// TrendReport is the trend analysis of one KPI.
type TrendReport struct {
	KPI      types.KPI       `json:"kpi"`
	Window   int             `json:"window"`
	Trend    analytics.Trend `json:"trend"`
	Points   []TrendPoint    `json:"points"`
	Forecast []ForecastPoint `json:"forecast"`
}

// Trend analyses a KPI's facts from sinceID on (0 for all history): trend
// classification, a rolling mean over window facts and a forecast of window
// days after the last fact. A window of 0 uses the configured trend periods.
func (s *Service) Trend(ctx context.Context, kpiID string, sinceID, window int) (TrendReport, error) {
	kpi, scope, err := s.readableKPI(ctx, kpiID)
	if err != nil {
		return TrendReport{}, err
	}
	if window <= 0 {
		window = s.cfg.TrendPeriods
	}
	obs, err := s.store.Observations(ctx, sqlite.ObservationFilter{DeptID: scope, KPIID: kpiID, SinceID: sinceID})
	if err != nil {
		return TrendReport{}, err
	}
	obs = analytics.Readings(obs)
	series := make([]float64, len(obs))
	for i, o := range obs {
		series[i] = o.Actual
	}
	rolling := analytics.RollingMean(series, window)

	rep := TrendReport{
		KPI:    kpi,
		Window: window,
		Trend:  analytics.ClassifyTrend(series, window),
		Points: make([]TrendPoint, len(obs)),
	}
	for i, o := range obs {
		rep.Points[i] = TrendPoint{DateID: o.DateID, Actual: o.Actual, Target: o.Target, Rolling: rolling[i]}
	}
	if len(obs) > 0 {
		last, err := dateid.FromDateID(obs[len(obs)-1].DateID)
		if err != nil {
			return TrendReport{}, err
		}
		for i, v := range analytics.Forecast(series, window) {
			rep.Forecast = append(rep.Forecast, ForecastPoint{
				DateID: dateid.ToDateID(last.AddDate(0, 0, i+1)),
				Value:  v,
			})
		}
	}
	return rep, nil
}

// KPIStatus is a KPI's latest reading classified against its target.
type KPIStatus struct {
	KPI         types.KPI             `json:"kpi"`
	Latest      types.KPIFact         `json:"latest"`
	Achievement analytics.Achievement `json:"achievement"`
}

// Achievement classifies the latest fact of a KPI that carries an actual
// value.
func (s *Service) Achievement(ctx context.Context, kpiID string) (KPIStatus, error) {
	kpi, scope, err := s.readableKPI(ctx, kpiID)
	if err != nil {
		return KPIStatus{}, err
	}
	obs, err := s.store.Observations(ctx, sqlite.ObservationFilter{DeptID: scope, KPIID: kpiID})
	if err != nil {
		return KPIStatus{}, err
	}
	obs = analytics.Readings(obs)
	if len(obs) == 0 {
		return KPIStatus{}, fmt.Errorf("facts for kpi %s: %w", kpiID, types.ErrNotFound)
	}
	latest := obs[len(obs)-1]
	return KPIStatus{
		KPI:         kpi,
		Latest:      latest.KPIFact,
		Achievement: analytics.ClassifyAchievement(latest.Actual, latest.Target, kpi.TargetDirection),
	}, nil
}

// KPIs lists the KPI definitions visible to the caller, by id.
func (s *Service) KPIs(ctx context.Context, deptID string) ([]types.KPI, error) {
	_, scope, err := s.session(ctx, deptID)
	if err != nil {
		return nil, err
	}
	return s.store.ListKPIs(ctx, scope)
}

// readableKPI loads a KPI the caller may read and returns the caller's
// department scope.
func (s *Service) readableKPI(ctx context.Context, kpiID string) (types.KPI, string, error) {
	_, scope, err := s.session(ctx, "")
	if err != nil {
		return types.KPI{}, "", err
	}
	kpi, err := s.store.GetKPI(ctx, kpiID)
	if err != nil {
		return types.KPI{}, "", err
	}
	if _, err := s.requireDept(ctx, kpi.DeptID); err != nil {
		return types.KPI{}, "", err
	}
	return kpi, scope, nil
}
