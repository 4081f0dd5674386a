package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/watch"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// harness runs the CLI against temporary config and data directories.
type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{"CONFIG_DIR", "DATA_DIR", "PASSWORD", "JWT_SECRET", "LOG_MODE", "DB_FILE", "BACKEND"} {
		t.Setenv(envPrefix+"_"+key, "")
	}
	return &harness{t: t, configDir: t.TempDir(), dataDir: t.TempDir()}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...)
	code := Run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ok runs args, requires success and returns stdout.
func (h *harness) ok(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.run(args...)
	require.Equal(h.t, exitSuccess, code, "insighthub %s\nstderr: %s", strings.Join(args, " "), errOut)
	return out
}

func (h *harness) jsonOut(v any, args ...string) {
	h.t.Helper()
	out := h.ok(append([]string{"--json"}, args...)...)
	require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
}

func seeded(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	h.ok("init")
	h.ok("seed")
	return h
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.ok("version")
	assert.Contains(t, out, "insighthub "+Version)
	assert.Contains(t, out, modulePath)
}

func TestInitIsIdempotent(t *testing.T) {
	h := newHarness(t)

	out := h.ok("init")
	assert.Contains(t, out, "Wrote")
	raw, err := os.ReadFile(filepath.Join(h.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "jwt_secret:")
	assert.FileExists(t, filepath.Join(h.dataDir, types.DefaultDBFile))

	out = h.ok("init")
	assert.NotContains(t, out, "Wrote")
	again, err := os.ReadFile(filepath.Join(h.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again), "an existing config is kept")
}

func TestSeedAndScopedReads(t *testing.T) {
	h := seeded(t)

	var all []types.KPI
	h.jsonOut(&all, "kpi", "list")
	assert.Len(t, all, 12)

	var mds []types.KPI
	h.jsonOut(&mds, "--user", "mds_head", "--password", "demo123", "kpi", "list")
	require.Len(t, mds, 3)
	for _, k := range mds {
		assert.Equal(t, "MDS", k.DeptID)
	}

	t.Setenv(envPassword, "demo123")
	var viaEnv []types.KPI
	h.jsonOut(&viaEnv, "--user", "it_head", "kpi", "list")
	assert.Len(t, viaEnv, 3)

	var sum hub.Summary
	h.jsonOut(&sum, "summary")
	assert.Len(t, sum.Departments, 4)
	assert.Equal(t, 5, sum.WorkTotal)
}

func TestExitCodes(t *testing.T) {
	h := seeded(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"bad password", []string{"--user", "admin", "--password", "nope", "kpi", "list"}, exitUserError},
		{"user without password", []string{"--user", "admin", "kpi", "list"}, exitUserError},
		{"other department", []string{"--user", "mds_head", "--password", "demo123", "summary", "--dept", "IT"}, exitUserError},
		{"scoped user seeding", []string{"--user", "mds_head", "--password", "demo123", "seed"}, exitUserError},
		{"unknown report", []string{"report", "scorecard"}, exitUserError},
		{"unknown command", []string{"frobnicate"}, exitUserError},
		{"unknown flag", []string{"kpi", "list", "--colour"}, exitUserError},
		{"missing argument", []string{"kpi", "status"}, exitUserError},
		{"reset without confirmation", []string{"reset"}, exitUserError},
		{"record without actual", []string{"kpi", "record", "IT_K1"}, exitUserError},
		{"bad date", []string{"kpi", "record", "IT_K1", "--actual", "3", "--date", "June 1st"}, exitUserError},
		{"unknown kpi", []string{"kpi", "status", "GHOST"}, exitUserError},
		{"unknown table", []string{"export", "fact_ghost"}, exitUserError},
		{"bad export format", []string{"export", "dim_department", "--format", "parquet"}, exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := h.run(tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestServeNeedsSecret(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("serve")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "jwt_secret")
}

func TestKPIRecordAndStatus(t *testing.T) {
	h := seeded(t)

	var fact types.KPIFact
	h.jsonOut(&fact, "kpi", "record", "IT_K2", "--actual", "6", "--target", "2", "--date", "2030-01-15")
	assert.Equal(t, "IT", fact.DeptID)
	assert.Equal(t, 20300115, fact.DateID)

	var status hub.KPIStatus
	h.jsonOut(&status, "kpi", "status", "IT_K2")
	assert.Equal(t, "IT_K2", status.KPI.KPIID)
	assert.Equal(t, fact.RecordID, status.Latest.RecordID)

	var rep hub.TrendReport
	h.jsonOut(&rep, "trend", "IT_K2", "--since", "20300101")
	require.Len(t, rep.Points, 1)
	assert.Equal(t, 6.0, rep.Points[0].Actual)
}

func TestWorkFlow(t *testing.T) {
	h := seeded(t)

	var w types.WorkItem
	h.jsonOut(&w, "work", "add", "--dept", "IT", "--title", "Replace backup tapes", "--priority", "High", "--due", "2030-03-01")
	require.NotEmpty(t, w.WorkID)
	assert.Equal(t, types.StatusPlanned, w.Status)
	assert.Equal(t, 20300301, w.DueDateID)

	var u types.WorkUpdate
	h.jsonOut(&u, "work", "update", w.WorkID, "--progress", "40", "--text", "vendor chosen", "--decision-needed")
	assert.Equal(t, 40.0, u.ProgressPercent)
	assert.True(t, u.DecisionNeeded)

	var updates []types.WorkUpdate
	h.jsonOut(&updates, "work", "updates", w.WorkID)
	require.Len(t, updates, 1)
	assert.Equal(t, "vendor chosen", updates[0].Narrative)

	var items []types.WorkItem
	h.jsonOut(&items, "work", "list", "--dept", "IT")
	var found bool
	for _, it := range items {
		if it.WorkID == w.WorkID {
			found = true
			assert.Equal(t, 40.0, it.ProgressPercent)
		}
	}
	assert.True(t, found)

	code, _, _ := h.run("work", "add", "--dept", "IT", "--title", "x", "--status", "Someday")
	assert.Equal(t, exitUserError, code)
}

func TestMeetingToPromotedAction(t *testing.T) {
	h := seeded(t)

	var m types.Meeting
	h.jsonOut(&m, "meeting", "add", "--dept", "BMS", "--title", "Audit review", "--minutes", "findings reviewed")
	require.NotEmpty(t, m.MeetingID)

	var d types.Decision
	h.jsonOut(&d, "decision", "add", m.MeetingID, "--dept", "BMS", "--text", "Close findings by Q3")
	require.NotEmpty(t, d.DecisionID)

	var act types.ActionItem
	h.jsonOut(&act, "action", "add", "--dept", "BMS", "--title", "Assign owners", "--meeting", m.MeetingID, "--decision", d.DecisionID)
	assert.Equal(t, types.StatusOpen, act.Status)

	var w types.WorkItem
	h.jsonOut(&w, "action", "promote", act.ActionID)
	assert.Equal(t, act.ActionID, w.ActionID)
	assert.Equal(t, "Assign owners", w.Title)

	var actions []types.ActionItem
	h.jsonOut(&actions, "action", "list", "--dept", "BMS")
	require.Len(t, actions, 1)
	assert.Equal(t, w.WorkID, actions[0].LinkedWorkID)

	code, _, stderr := h.run("action", "promote", act.ActionID)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "promoted")
}

func TestInsightsLog(t *testing.T) {
	h := seeded(t)

	var generated []types.Insight
	h.jsonOut(&generated, "insights", "--save")
	require.NotEmpty(t, generated)

	var logged []types.Insight
	h.jsonOut(&logged, "insights", "list", "--unread")
	require.Len(t, logged, len(generated))

	h.ok("insights", "read", logged[0].InsightID)
	var unread []types.Insight
	h.jsonOut(&unread, "insights", "list", "--unread")
	assert.Len(t, unread, len(generated)-1)

	var top []types.Insight
	h.jsonOut(&top, "insights", "--top", "1")
	assert.Len(t, top, 1)
}

func TestReportsExportImport(t *testing.T) {
	h := seeded(t)
	dir := t.TempDir()

	report := filepath.Join(dir, "scorecard.xlsx")
	h.ok("report", "kpi-scorecard", "--out", report)
	assert.FileExists(t, report)

	out := h.ok("report", "work-status", "--format", "csv")
	assert.Equal(t, 6, strings.Count(out, "\n"), "header plus five seeded work items")

	exported := filepath.Join(dir, "dim_department.replace.csv")
	h.ok("export", "dim_department", "--out", exported)

	var res hub.ImportResult
	h.jsonOut(&res, "import", exported)
	assert.Equal(t, hub.ImportResult{Table: "dim_department", Mode: hub.ImportReplace, Rows: 4}, res)

	code, _, _ := h.run("import", exported, "--table", "dim_department", "--mode", "append")
	assert.Equal(t, exitSysError, code, "appending existing keys is a storage failure")

	var rows []map[string]any
	h.jsonOut(&rows, "workspace", "aggregate", "fact_kpi_data", "--field", "actual_value", "--func", "count", "--group", "dept_id")
	require.Len(t, rows, 4)
	total := 0.0
	for _, r := range rows {
		total += r["actual_value_count"].(float64)
	}
	assert.Equal(t, 1080.0, total)
}

func TestUserAddAndLogin(t *testing.T) {
	h := seeded(t)

	var u types.User
	h.jsonOut(&u, "user", "add", "bob", "--role", "DeptHead", "--dept", "SGS", "--new-password", "s3cret")
	assert.Equal(t, types.RoleDeptHead, u.Role)
	assert.Empty(t, u.PasswordHash)

	var kpis []types.KPI
	h.jsonOut(&kpis, "--user", "bob", "--password", "s3cret", "kpi", "list")
	require.Len(t, kpis, 3)
	assert.Equal(t, "SGS", kpis[0].DeptID)

	code, _, _ := h.run("--user", "bob", "--password", "s3cret", "user", "list")
	assert.Equal(t, exitUserError, code, "only admins list logins")

	code, _, _ = h.run("user", "add", "carol", "--role", "Wizard", "--new-password", "x")
	assert.Equal(t, exitUserError, code)
}

func TestWatchOnce(t *testing.T) {
	h := seeded(t)
	inbox := t.TempDir()

	h.ok("export", "dim_department", "--out", filepath.Join(inbox, "dim_department.replace.json"))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "ghost.csv"), []byte("a,b\n1,2\n"), 0o644))

	out := h.ok("watch", inbox, "--once")
	assert.Contains(t, out, "imported dim_department.replace.json")
	assert.Contains(t, out, "failed ghost.csv")

	assert.FileExists(t, filepath.Join(inbox, watch.ProcessedDir, "dim_department.replace.json"))
	assert.FileExists(t, filepath.Join(inbox, watch.FailedDir, "ghost.csv"))
}

func TestResetClearsWarehouse(t *testing.T) {
	h := seeded(t)
	h.ok("reset", "--yes")

	var kpis []types.KPI
	h.jsonOut(&kpis, "kpi", "list")
	assert.Empty(t, kpis)
}
