package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

const testOrigin = "http://localhost:5173"

type testAPI struct {
	handler http.Handler
	hub     *hub.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	clock := func() time.Time { return testNow }

	b := sqlite.NewBackend(sqlite.WithClock(clock))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })

	require.NoError(t, b.UpsertDepartment(ctx, types.Department{DeptID: "MDS", DeptName: "Marketing & Sales"}))
	require.NoError(t, b.UpsertDepartment(ctx, types.Department{DeptID: "IT", DeptName: "IT Operations"}))
	require.NoError(t, b.UpsertKPI(ctx, types.KPI{KPIID: "MDS_K1", KPIName: "Lead Volume", DeptID: "MDS",
		TargetDirection: types.HigherIsBetter}))
	require.NoError(t, b.UpsertKPI(ctx, types.KPI{KPIID: "IT_K2", KPIName: "Incident Count", DeptID: "IT",
		TargetDirection: types.LowerIsBetter}))
	for _, f := range []types.KPIFact{
		{KPIID: "MDS_K1", DateID: 20240611, Actual: 100, Target: 100},
		{KPIID: "MDS_K1", DateID: 20240612, Actual: 110, Target: 100},
		{KPIID: "MDS_K1", DateID: 20240613, Actual: 120, Target: 100},
		{KPIID: "IT_K2", DateID: 20240614, Actual: 6, Target: 2},
	} {
		_, err := b.RecordKPIFact(ctx, f)
		require.NoError(t, err)
	}
	hash := auth.HashPassword("demo123")
	for _, u := range []types.User{
		{Username: "admin", Role: types.RoleAdmin},
		{Username: "mds_head", Role: types.RoleDeptHead, DeptID: "MDS"},
		{Username: "it_head", Role: types.RoleDeptHead, DeptID: "IT"},
	} {
		u.PasswordHash = hash
		u.Enabled = true
		require.NoError(t, b.UpsertUser(ctx, u))
	}

	svc := hub.New(b, hub.WithClock(clock))
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	srv := NewServer(svc, auth.NewAuthenticator(b, nil), tokens, nil,
		WithAllowedOrigins(testOrigin), WithClock(clock))
	return &testAPI{handler: srv.Handler(), hub: svc}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: username, Password: "demo123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error errorBody `json:"error"`
	}](t, rec)
	return body.Error.Code
}

func TestHealthAndRequestID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"valid", loginRequest{Username: "mds_head", Password: "demo123"}, http.StatusOK},
		{"wrong password", loginRequest{Username: "mds_head", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "ghost", Password: "demo123"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "mds_head"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/login", "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	rec := api.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "mds_head", Password: "demo123"})
	resp := decode[loginResponse](t, rec)
	assert.Equal(t, "MDS", resp.Session.DeptID)
	assert.Equal(t, types.RoleDeptHead, resp.Session.Role)
}

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = api.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/me", api.login(t, "it_head"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "it_head", decode[auth.Session](t, rec).Username)
}

func TestDepartmentScope(t *testing.T) {
	api := newTestAPI(t)
	mds := api.login(t, "mds_head")

	rec := api.do(t, http.MethodGet, "/api/kpis", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kpis := decode[struct {
		KPIs []types.KPI `json:"kpis"`
	}](t, rec)
	require.Len(t, kpis.KPIs, 1)
	assert.Equal(t, "MDS_K1", kpis.KPIs[0].KPIID)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"other department insights", "/api/insights?dept=IT", http.StatusForbidden},
		{"other department trend", "/api/kpis/IT_K2/trend", http.StatusForbidden},
		{"unknown kpi", "/api/kpis/NOPE/achievement", http.StatusNotFound},
		{"login records", "/api/export/dim_user", http.StatusForbidden},
		{"bad window", "/api/kpis/MDS_K1/trend?window=-1", http.StatusBadRequest},
		{"bad date", "/api/kpis/MDS_K1/trend?since=2024-13-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, tt.path, mds, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	rec = api.do(t, http.MethodGet, "/api/insights", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	insights := decode[struct {
		Insights []types.Insight `json:"insights"`
	}](t, rec)
	for _, in := range insights.Insights {
		assert.Equal(t, "MDS", in.DeptID)
	}
}

func TestInsightLog(t *testing.T) {
	api := newTestAPI(t)
	it := api.login(t, "it_head")

	rec := api.do(t, http.MethodPost, "/api/insights", it, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[struct {
		Insights []types.Insight `json:"insights"`
	}](t, rec).Insights
	require.NotEmpty(t, saved)

	rec = api.do(t, http.MethodPost, "/api/insights/"+saved[0].InsightID+"/read", it, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/insights/log?unread=true", it, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unread := decode[struct {
		Insights []types.Insight `json:"insights"`
	}](t, rec).Insights
	assert.Len(t, unread, len(saved)-1)

	rec = api.do(t, http.MethodGet, "/api/insights/log?limit=x", it, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordFactAndTrend(t *testing.T) {
	api := newTestAPI(t)
	mds := api.login(t, "mds_head")

	rec := api.do(t, http.MethodPost, "/api/kpis/MDS_K1/facts", mds,
		map[string]any{"date": "2024-06-14", "actual_value": 130, "target_value": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fact := decode[types.KPIFact](t, rec)
	assert.Equal(t, "MDS", fact.DeptID)
	assert.Equal(t, 20240614, fact.DateID)

	for name, body := range map[string]any{
		"missing actual": map[string]any{"date": "2024-06-14"},
		"bad date":       map[string]any{"date": "14/06/2024", "actual_value": 1},
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/kpis/MDS_K1/facts", mds, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec = api.do(t, http.MethodGet, "/api/kpis/MDS_K1/trend?window=3", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trend := decode[hub.TrendReport](t, rec)
	require.Len(t, trend.Points, 4)
	assert.Equal(t, types.TrendUp, trend.Trend.Direction)
	require.Len(t, trend.Forecast, 3)
	assert.Equal(t, 20240615, trend.Forecast[0].DateID)

	rec = api.do(t, http.MethodGet, "/api/kpis/MDS_K1/trend?since=20240613", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[hub.TrendReport](t, rec).Points, 2)

	rec = api.do(t, http.MethodGet, "/api/kpis/MDS_K1/achievement", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 130.0, decode[hub.KPIStatus](t, rec).Latest.Actual)
}

func TestWorkFlow(t *testing.T) {
	api := newTestAPI(t)
	it := api.login(t, "it_head")

	rec := api.do(t, http.MethodPost, "/api/work", it, types.WorkItem{
		DeptID: "IT", Title: "Patch servers", Status: types.StatusInProgress,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	w := decode[types.WorkItem](t, rec)
	require.NotEmpty(t, w.WorkID)

	rec = api.do(t, http.MethodPost, "/api/work/"+w.WorkID+"/updates", it, map[string]any{"progress_percent": 40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 20240615, decode[types.WorkUpdate](t, rec).DateID, "dated today by default")

	rec = api.do(t, http.MethodPost, "/api/work/"+w.WorkID+"/updates", it, map[string]any{"progress_percent": 140})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/work", it, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[struct {
		WorkItems []types.WorkItem `json:"work_items"`
	}](t, rec).WorkItems
	require.Len(t, items, 1)
	assert.Equal(t, 40.0, items[0].ProgressPercent)

	rec = api.do(t, http.MethodGet, "/api/work/"+w.WorkID+"/updates", api.login(t, "mds_head"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/summary", it, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[hub.Summary](t, rec).WorkTotal)
}

func TestPromoteAction(t *testing.T) {
	api := newTestAPI(t)
	ctx := auth.WithSession(context.Background(), auth.Session{Username: "admin", Role: types.RoleAdmin})
	a, err := api.hub.AddAction(ctx, types.ActionItem{DeptID: "IT", Title: "Renew certificates"})
	require.NoError(t, err)
	it := api.login(t, "it_head")

	rec := api.do(t, http.MethodPost, "/api/actions/"+a.ActionID+"/promote", it, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, a.ActionID, decode[types.WorkItem](t, rec).ActionID)

	rec = api.do(t, http.MethodPost, "/api/actions/"+a.ActionID+"/promote", it, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorCode(t, rec))

	rec = api.do(t, http.MethodGet, "/api/actions", it, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), a.ActionID)
}

func TestReportsAndExport(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")
	mds := api.login(t, "mds_head")

	rec := api.do(t, http.MethodGet, "/api/reports/kpi-scorecard", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}](t, rec)
	assert.Contains(t, body.Columns, "dept_name")
	assert.Len(t, body.Rows, 2)

	rec = api.do(t, http.MethodGet, "/api/reports/bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/export/fact_kpi_data?format=csv", mds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fact_kpi_data.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4, "header plus the three MDS facts")
	assert.NotContains(t, rec.Body.String(), "IT_K2")

	rec = api.do(t, http.MethodGet, "/api/export/fact_kpi_data?format=txt", mds, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAggregate(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin")

	rec := api.do(t, http.MethodPost, "/api/workspace/aggregate", admin, aggregateRequest{
		Table: types.TableKPIFact,
		Spec:  dataset.Spec{GroupBy: "kpi_id", Field: "actual_value", Funcs: []dataset.Func{dataset.Mean}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Columns []string `json:"columns"`
	}](t, rec)
	assert.Equal(t, []string{"kpi_id", "actual_value_mean"}, body.Columns)

	rec = api.do(t, http.MethodPost, "/api/workspace/aggregate", admin, aggregateRequest{
		Table: types.TableKPIFact,
		Spec:  dataset.Spec{Field: "nope", Funcs: []dataset.Func{dataset.Sum}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("kpi X: %w", types.ErrNotFound), http.StatusNotFound},
		{types.ErrForbidden, http.StatusForbidden},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{types.ErrAlreadyPromoted, http.StatusConflict},
		{dataset.ErrInvalidSpec, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := statusOf(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
