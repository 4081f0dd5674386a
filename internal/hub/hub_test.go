package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/analytics"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

var (
	adminSession = auth.Session{Username: "admin", Role: types.RoleAdmin}
	execSession  = auth.Session{Username: "executive", Role: types.RoleExecutive}
	mdsSession   = auth.Session{Username: "mds_head", Role: types.RoleDeptHead, DeptID: "MDS"}
	itSession    = auth.Session{Username: "it_head", Role: types.RoleDeptHead, DeptID: "IT"}
)

func as(s auth.Session) context.Context {
	return auth.WithSession(context.Background(), s)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	clock := func() time.Time { return testNow }
	b := sqlite.NewBackend(sqlite.WithClock(clock))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })
	return New(b, WithClock(clock))
}

// fixture loads two departments with one KPI each, a rising MDS series, a
// breaching IT reading and two work items.
func fixture(t *testing.T) *Service {
	t.Helper()
	s := newTestService(t)
	ctx := context.Background()
	b := s.Store()
	require.NoError(t, b.UpsertDepartment(ctx, types.Department{DeptID: "MDS", DeptName: "Marketing & Sales"}))
	require.NoError(t, b.UpsertDepartment(ctx, types.Department{DeptID: "IT", DeptName: "IT Operations"}))
	require.NoError(t, b.UpsertKPI(ctx, types.KPI{KPIID: "MDS_K1", KPIName: "Lead Volume", DeptID: "MDS",
		TargetDirection: types.HigherIsBetter}))
	require.NoError(t, b.UpsertKPI(ctx, types.KPI{KPIID: "IT_K2", KPIName: "Incident Count", DeptID: "IT",
		TargetDirection: types.LowerIsBetter}))

	admin := as(adminSession)
	for _, f := range []types.KPIFact{
		{KPIID: "MDS_K1", DateID: 20240610, Actual: 100, Target: 100},
		{KPIID: "MDS_K1", DateID: 20240611, Actual: 110, Target: 100},
		{KPIID: "MDS_K1", DateID: 20240612, Actual: 120, Target: 100},
		{KPIID: "MDS_K1", DateID: 20240613, Actual: 150, Target: 100},
		{KPIID: "IT_K2", DateID: 20240614, Actual: 6, Target: 2},
	} {
		_, err := s.RecordFact(admin, f)
		require.NoError(t, err)
	}
	for _, w := range []types.WorkItem{
		{DeptID: "IT", Title: "Database Migration", Status: types.StatusInProgress, RiskLevel: types.RiskHigh, DueDateID: 20240601},
		{DeptID: "MDS", Title: "Q1 campaign", Status: types.StatusDone, DueDateID: 20240301},
	} {
		_, err := s.SaveWorkItem(admin, w)
		require.NoError(t, err)
	}
	return s
}

func metrics(insights []types.Insight) map[string]types.InsightCategory {
	out := make(map[string]types.InsightCategory, len(insights))
	for _, in := range insights {
		out[in.MetricName+"/"+string(in.Severity)] = in.Category
	}
	return out
}

func TestInsightsScope(t *testing.T) {
	s := fixture(t)

	all, err := s.Insights(as(adminSession), "", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.InsightCategory{
		"Incident Count/high":                    types.InsightDanger,
		"Lead Volume/low":                        types.InsightSuccess,
		"Lead Volume/medium":                     types.InsightInfo,
		analytics.MetricOverdueWork + "/high":    types.InsightDanger,
		analytics.MetricHighRiskWork + "/medium": types.InsightWarning,
	}, metrics(all))
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Severity.Rank(), all[i].Severity.Rank(), "most severe first")
	}

	mds, err := s.Insights(as(mdsSession), "", false)
	require.NoError(t, err)
	require.Len(t, mds, 2)
	for _, in := range mds {
		assert.Equal(t, "MDS", in.DeptID)
	}

	_, err = s.Insights(as(mdsSession), "IT", false)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = s.Insights(context.Background(), "", false)
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestInsightLogScope(t *testing.T) {
	s := fixture(t)

	saved, err := s.Insights(as(itSession), "", true)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, in := range saved {
		assert.NotEmpty(t, in.InsightID)
	}

	mdsLog, err := s.ListInsights(as(mdsSession), "", false, 0)
	require.NoError(t, err)
	assert.Empty(t, mdsLog)

	assert.ErrorIs(t, s.MarkInsightRead(as(mdsSession), saved[0].InsightID), types.ErrNotFound)
	require.NoError(t, s.MarkInsightRead(as(itSession), saved[0].InsightID))

	unread, err := s.ListInsights(as(execSession), "", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)
}

func TestSummary(t *testing.T) {
	s := fixture(t)

	sum, err := s.Summary(as(execSession), "")
	require.NoError(t, err)
	require.Len(t, sum.Departments, 2)
	assert.Equal(t, "IT", sum.Departments[0].DeptID)
	assert.InDelta(t, 300.0, sum.Departments[0].Achievement, 1e-9)
	assert.Equal(t, 20240613, sum.Departments[1].DateID)
	assert.InDelta(t, 150.0, sum.Departments[1].Achievement, 1e-9)
	assert.Equal(t, 2, sum.WorkTotal)
	assert.Equal(t, 1, sum.WorkStatus[types.StatusDone])

	mds, err := s.Summary(as(mdsSession), "")
	require.NoError(t, err)
	assert.Equal(t, "MDS", mds.DeptID)
	require.Len(t, mds.Departments, 1)
	assert.Equal(t, 1, mds.WorkTotal)
}

func TestTrend(t *testing.T) {
	s := fixture(t)

	rep, err := s.Trend(as(mdsSession), "MDS_K1", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "Lead Volume", rep.KPI.KPIName)
	assert.Equal(t, types.TrendUp, rep.Trend.Direction)
	assert.InDelta(t, 26.667, rep.Trend.Change, 0.001)
	require.Len(t, rep.Points, 4)
	assert.Equal(t, 100.0, rep.Points[0].Rolling)
	assert.InDelta(t, 126.667, rep.Points[3].Rolling, 0.001)
	require.Len(t, rep.Forecast, 3)
	assert.Equal(t, 20240614, rep.Forecast[0].DateID)
	assert.Equal(t, 20240616, rep.Forecast[2].DateID)

	since, err := s.Trend(as(adminSession), "MDS_K1", 20240612, 0)
	require.NoError(t, err)
	assert.Len(t, since.Points, 2)
	assert.Equal(t, 7, since.Window, "configured trend periods")

	_, err = s.Trend(as(mdsSession), "IT_K2", 0, 0)
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = s.Trend(as(adminSession), "NOPE", 0, 0)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAchievement(t *testing.T) {
	s := fixture(t)

	st, err := s.Achievement(as(itSession), "IT_K2")
	require.NoError(t, err)
	assert.Equal(t, types.Breach, st.Achievement.Status)
	assert.Equal(t, 20240614, st.Latest.DateID)

	require.NoError(t, s.Store().UpsertKPI(context.Background(), types.KPI{KPIID: "IT_K9", KPIName: "Spare",
		DeptID: "IT", TargetDirection: types.HigherIsBetter}))
	_, err = s.Achievement(as(itSession), "IT_K9")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// appendFacts writes raw kpi fact rows the way an import does, bypassing
// RecordFact's department defaulting.
func appendFacts(t *testing.T, s *Service, rows ...[]dataset.Value) {
	t.Helper()
	tbl, err := s.Store().GetTable(types.TableKPIFact)
	require.NoError(t, err)
	data := dataset.MustTable(
		dataset.Column{Name: "date_id", Kind: dataset.KindText},
		dataset.Column{Name: "dept_id", Kind: dataset.KindText},
		dataset.Column{Name: "kpi_id", Kind: dataset.KindText},
		dataset.Column{Name: "actual_value", Kind: dataset.KindNumber},
		dataset.Column{Name: "target_value", Kind: dataset.KindNumber},
	)
	for _, r := range rows {
		require.NoError(t, data.Append(r...))
	}
	require.NoError(t, tbl.Append(context.Background(), data))
}

func TestMissingActualIsNotAReading(t *testing.T) {
	s := fixture(t)
	appendFacts(t, s, []dataset.Value{dataset.Text("20240614"), dataset.Text("MDS"), dataset.Text("MDS_K1"),
		dataset.Null(), dataset.Number(100)})

	all, err := s.Insights(as(adminSession), "", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.InsightCategory{
		"Incident Count/high":                    types.InsightDanger,
		"Lead Volume/medium":                     types.InsightInfo,
		analytics.MetricOverdueWork + "/high":    types.InsightDanger,
		analytics.MetricHighRiskWork + "/medium": types.InsightWarning,
	}, metrics(all), "no target insight for a day without an actual")

	rep, err := s.Trend(as(mdsSession), "MDS_K1", 0, 3)
	require.NoError(t, err)
	require.Len(t, rep.Points, 4)
	assert.Equal(t, 150.0, rep.Points[3].Actual)
	assert.InDelta(t, 26.667, rep.Trend.Change, 0.001)

	st, err := s.Achievement(as(mdsSession), "MDS_K1")
	require.NoError(t, err)
	assert.Equal(t, 20240613, st.Latest.DateID)
	assert.Equal(t, types.OnTarget, st.Achievement.Status)
}

func TestKPIFactsFollowCallerScope(t *testing.T) {
	s := fixture(t)
	appendFacts(t, s, []dataset.Value{dataset.Text("20240614"), dataset.Text("IT"), dataset.Text("MDS_K1"),
		dataset.Number(1), dataset.Number(100)})

	rep, err := s.Trend(as(mdsSession), "MDS_K1", 0, 3)
	require.NoError(t, err)
	assert.Len(t, rep.Points, 4, "a fact filed under IT stays out of MDS reads")

	st, err := s.Achievement(as(mdsSession), "MDS_K1")
	require.NoError(t, err)
	assert.Equal(t, "MDS", st.Latest.DeptID)
	assert.Equal(t, 20240613, st.Latest.DateID)

	all, err := s.Trend(as(adminSession), "MDS_K1", 0, 3)
	require.NoError(t, err)
	assert.Len(t, all.Points, 5)
}

func TestWriteScope(t *testing.T) {
	s := fixture(t)
	mds := as(mdsSession)

	f, err := s.RecordFact(mds, types.KPIFact{KPIID: "MDS_K1", DateID: 20240615, Actual: 90, Target: 100})
	require.NoError(t, err)
	assert.Equal(t, "MDS", f.DeptID)

	_, err = s.RecordFact(mds, types.KPIFact{KPIID: "IT_K2", DateID: 20240615, Actual: 1, Target: 2})
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = s.RecordFact(mds, types.KPIFact{KPIID: "MDS_K1", DeptID: "IT", DateID: 20240615, Actual: 1})
	assert.ErrorIs(t, err, types.ErrForbidden)

	items, err := s.WorkItems(as(itSession), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	itWork := items[0]

	_, err = s.AddWorkUpdate(mds, types.WorkUpdate{WorkID: itWork.WorkID, DateID: 20240615, ProgressPercent: 50})
	assert.ErrorIs(t, err, types.ErrForbidden)
	itWork.DeptID = "MDS"
	_, err = s.SaveWorkItem(mds, itWork)
	assert.ErrorIs(t, err, types.ErrForbidden, "cannot take over another department's item")

	u, err := s.AddWorkUpdate(as(itSession), types.WorkUpdate{WorkID: itWork.WorkID, DateID: 20240615, ProgressPercent: 50})
	require.NoError(t, err)
	updates, err := s.WorkUpdates(as(itSession), itWork.WorkID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, u.UpdateID, updates[0].UpdateID)
}

func TestMeetingFlow(t *testing.T) {
	s := fixture(t)
	it := as(itSession)

	m, err := s.AddMeeting(it, types.Meeting{DateID: 20240614, DeptID: "IT", Title: "Ops review"})
	require.NoError(t, err)
	d, err := s.AddDecision(it, types.Decision{MeetingID: m.MeetingID, DeptID: "IT", DecisionText: "Patch monthly"})
	require.NoError(t, err)
	a, err := s.AddAction(it, types.ActionItem{MeetingID: m.MeetingID, DecisionID: d.DecisionID, DeptID: "IT", Title: "Schedule patching"})
	require.NoError(t, err)

	_, err = s.PromoteAction(as(mdsSession), a.ActionID)
	assert.ErrorIs(t, err, types.ErrForbidden)
	w, err := s.PromoteAction(it, a.ActionID)
	require.NoError(t, err)
	assert.Equal(t, a.ActionID, w.ActionID)

	actions, err := s.Actions(it, "")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, w.WorkID, actions[0].LinkedWorkID)

	_, err = s.AddMeeting(as(mdsSession), types.Meeting{DateID: 20240614, DeptID: "IT", Title: "x"})
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestReadTableAndAggregate(t *testing.T) {
	s := fixture(t)

	facts, err := s.ReadTable(as(mdsSession), types.TableKPIFact)
	require.NoError(t, err)
	assert.Equal(t, 4, facts.Len())

	_, err = s.ReadTable(as(adminSession), types.TableUser)
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = s.ReadTable(as(mdsSession), types.TableWorkUpdate)
	assert.ErrorIs(t, err, types.ErrForbidden)
	dates, err := s.ReadTable(as(mdsSession), types.TableDate)
	require.NoError(t, err)
	assert.Positive(t, dates.Len())

	agg, err := s.Aggregate(as(execSession), types.TableKPIFact, dataset.Spec{
		GroupBy: "kpi_id",
		Field:   "actual_value",
		Funcs:   []dataset.Func{dataset.Count, dataset.Mean},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kpi_id", "actual_value_count", "actual_value_mean"}, agg.Schema.Names())
	require.Equal(t, 2, agg.Len())
	first := agg.Record(0)
	assert.Equal(t, "MDS_K1", first["kpi_id"].String())
	mean, _ := first["actual_value_mean"].Float()
	assert.InDelta(t, 120.0, mean, 1e-9)
}

func TestImport(t *testing.T) {
	s := fixture(t)

	facts := dataset.MustTable(
		dataset.Column{Name: "date_id", Kind: dataset.KindNumber},
		dataset.Column{Name: "dept_id", Kind: dataset.KindText},
		dataset.Column{Name: "kpi_id", Kind: dataset.KindText},
		dataset.Column{Name: "actual_value", Kind: dataset.KindNumber},
	)
	require.NoError(t, facts.Append(dataset.Number(20240701), dataset.Text("MDS"), dataset.Text("MDS_K1"), dataset.Number(130)))

	res, err := s.Import(as(mdsSession), types.TableKPIFact, facts, ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Table: types.TableKPIFact, Mode: ImportAppend, Rows: 1}, res)

	tests := []struct {
		name    string
		session auth.Session
		table   string
		mode    ImportMode
	}{
		{"scoped replace", mdsSession, types.TableKPIFact, ImportReplace},
		{"scoped master data", mdsSession, types.TableKPI, ImportAppend},
		{"other department rows", itSession, types.TableKPIFact, ImportAppend},
		{"executive master data", execSession, types.TableDepartment, ImportAppend},
		{"login records", adminSession, types.TableUser, ImportAppend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import(as(tt.session), tt.table, facts, tt.mode)
			assert.ErrorIs(t, err, types.ErrForbidden)
		})
	}

	depts := dataset.MustTable(
		dataset.Column{Name: "dept_id", Kind: dataset.KindText},
		dataset.Column{Name: "dept_name", Kind: dataset.KindText},
	)
	require.NoError(t, depts.Append(dataset.Text("HR"), dataset.Text("People")))
	_, err = s.Import(as(adminSession), types.TableDepartment, depts, ImportAppend)
	require.NoError(t, err)
	list, err := s.Store().ListDepartments(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = ParseImportMode("merge")
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestAdmin(t *testing.T) {
	s := newTestService(t)
	admin := as(adminSession)

	stats, err := s.Seed(admin)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Users)

	_, err = s.AddUser(admin, types.User{Username: "hr_head", Role: types.RoleDeptHead, DeptID: "HR", Enabled: true}, "pw")
	require.NoError(t, err)
	_, err = s.AddUser(admin, types.User{Username: "x", Role: types.RoleAdmin}, "")
	assert.ErrorIs(t, err, types.ErrInvalidData)

	users, err := s.Users(admin)
	require.NoError(t, err)
	assert.Len(t, users, 8)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}

	a := auth.NewAuthenticator(s.Store(), nil)
	sess, err := a.Login(context.Background(), "hr_head", "pw")
	require.NoError(t, err)
	assert.Equal(t, "HR", sess.DeptID)

	_, err = s.Users(as(execSession))
	assert.ErrorIs(t, err, types.ErrForbidden)
	assert.ErrorIs(t, s.Reset(as(mdsSession)), types.ErrForbidden)

	require.NoError(t, s.Reset(admin))
	users, err = s.Users(admin)
	require.NoError(t, err)
	assert.Empty(t, users)
}
