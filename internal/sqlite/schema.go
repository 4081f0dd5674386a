package sqlite

import "github.com/mesh-intelligence/insighthub/pkg/types"

// Schema DDL for all tables. Every statement is idempotent so Attach can run
// them against an existing database file.
const (
	createDimDate = `CREATE TABLE IF NOT EXISTS dim_date (
    date_id INTEGER PRIMARY KEY,
    date TEXT NOT NULL,
    month INTEGER,
    quarter INTEGER,
    year INTEGER,
    week INTEGER
);`

	createDimDepartment = `CREATE TABLE IF NOT EXISTS dim_department (
    dept_id TEXT PRIMARY KEY,
    dept_name TEXT NOT NULL,
    dept_code TEXT,
    dept_head_person_id TEXT,
    description TEXT,
    color TEXT DEFAULT '#3b82f6'
);`

	createDimPerson = `CREATE TABLE IF NOT EXISTS dim_person (
    person_id TEXT PRIMARY KEY,
    person_name TEXT NOT NULL,
    role TEXT,
    department TEXT,
    email TEXT
);`

	createDimKPI = `CREATE TABLE IF NOT EXISTS dim_kpi (
    kpi_id TEXT PRIMARY KEY,
    kpi_name TEXT NOT NULL,
    kpi_definition TEXT,
    dept_id TEXT,
    calculation_logic TEXT,
    unit TEXT,
    target_direction TEXT NOT NULL DEFAULT 'higher_is_better'
);`

	createDimStrategy = `CREATE TABLE IF NOT EXISTS dim_strategy (
    strategy_id TEXT PRIMARY KEY,
    strategy_name TEXT NOT NULL,
    dept_id TEXT,
    start_date_id INTEGER,
    end_date_id INTEGER,
    status TEXT
);`

	createDimUser = `CREATE TABLE IF NOT EXISTS dim_user (
    username TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    dept_id TEXT,
    person_id TEXT,
    is_enabled INTEGER NOT NULL DEFAULT 1
);`

	createFactKPIData = `CREATE TABLE IF NOT EXISTS fact_kpi_data (
    record_id TEXT PRIMARY KEY,
    date_id INTEGER NOT NULL,
    dept_id TEXT NOT NULL,
    kpi_id TEXT NOT NULL,
    actual_value REAL,
    target_value REAL,
    created_ts TEXT
);`

	createFactWorkItem = `CREATE TABLE IF NOT EXISTS fact_work_item (
    work_id TEXT PRIMARY KEY,
    dept_id TEXT NOT NULL,
    strategy_id TEXT,
    kpi_id TEXT,
    source_action_id TEXT,
    owner_person_id TEXT,
    work_title TEXT NOT NULL,
    work_type TEXT,
    priority TEXT,
    status TEXT NOT NULL DEFAULT 'Planned',
    progress_percent REAL NOT NULL DEFAULT 0,
    start_date_id INTEGER,
    due_date_id INTEGER,
    risk_level TEXT,
    notes TEXT,
    created_ts TEXT,
    updated_ts TEXT
);`

	createFactWorkUpdate = `CREATE TABLE IF NOT EXISTS fact_work_update (
    update_id TEXT PRIMARY KEY,
    work_id TEXT NOT NULL,
    date_id INTEGER NOT NULL,
    progress_percent REAL NOT NULL,
    update_text TEXT,
    blockers TEXT,
    decision_needed INTEGER NOT NULL DEFAULT 0,
    created_ts TEXT
);`

	createFactMeeting = `CREATE TABLE IF NOT EXISTS fact_meeting (
    meeting_id TEXT PRIMARY KEY,
    date_id INTEGER NOT NULL,
    dept_id TEXT,
    meeting_title TEXT NOT NULL,
    meeting_type TEXT,
    organizer_person_id TEXT,
    minutes TEXT,
    created_ts TEXT
);`

	createFactDecision = `CREATE TABLE IF NOT EXISTS fact_decision (
    decision_id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    dept_id TEXT,
    decision_text TEXT NOT NULL,
    decided_by TEXT,
    created_ts TEXT
);`

	createFactMeetingAction = `CREATE TABLE IF NOT EXISTS fact_meeting_action (
    action_id TEXT PRIMARY KEY,
    meeting_id TEXT,
    decision_id TEXT,
    dept_id TEXT,
    owner_person_id TEXT,
    action_title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Open',
    due_date_id INTEGER,
    progress_percent REAL NOT NULL DEFAULT 0,
    linked_work_id TEXT,
    created_ts TEXT,
    updated_ts TEXT
);`

	createLogInsights = `CREATE TABLE IF NOT EXISTS log_insights (
    insight_id TEXT PRIMARY KEY,
    dept_id TEXT,
    insight_type TEXT,
    metric_name TEXT,
    insight_text TEXT NOT NULL,
    severity TEXT,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_ts TEXT
);`
)

// Index DDL.
const (
	indexKPIDataKPIDate  = `CREATE INDEX IF NOT EXISTS idx_kpi_data_kpi_date ON fact_kpi_data (kpi_id, date_id);`
	indexKPIDataDeptDate = `CREATE INDEX IF NOT EXISTS idx_kpi_data_dept_date ON fact_kpi_data (dept_id, date_id);`
	indexWorkItemDept    = `CREATE INDEX IF NOT EXISTS idx_work_item_dept ON fact_work_item (dept_id, status);`
	indexWorkUpdateWork  = `CREATE INDEX IF NOT EXISTS idx_work_update_work ON fact_work_update (work_id, date_id);`
	indexActionMeeting   = `CREATE INDEX IF NOT EXISTS idx_action_meeting ON fact_meeting_action (meeting_id);`
	indexInsightsDept    = `CREATE INDEX IF NOT EXISTS idx_insights_dept ON log_insights (dept_id, created_ts);`
)

// schemaDDL lists table creation statements in dependency order.
var schemaDDL = []string{
	createDimDate,
	createDimDepartment,
	createDimPerson,
	createDimKPI,
	createDimStrategy,
	createDimUser,
	createFactKPIData,
	createFactWorkItem,
	createFactWorkUpdate,
	createFactMeeting,
	createFactDecision,
	createFactMeetingAction,
	createLogInsights,
}

// indexDDL lists index creation statements.
var indexDDL = []string{
	indexKPIDataKPIDate,
	indexKPIDataDeptDate,
	indexWorkItemDept,
	indexWorkUpdateWork,
	indexActionMeeting,
	indexInsightsDept,
}

// idPrefixes names the tables whose keys are generated when a row arrives
// without one, and the prefix used. Other tables require caller keys.
var idPrefixes = map[string]string{
	types.TableKPIFact:    "KPI",
	types.TableWorkItem:   "W",
	types.TableWorkUpdate: "WU",
	types.TableMeeting:    "M",
	types.TableDecision:   "D",
	types.TableAction:     "A",
	types.TableInsightLog: "INS",
}

// dateColumns are TEXT columns holding ISO dates or RFC 3339 timestamps.
var dateColumns = map[string]bool{
	"date":       true,
	"created_ts": true,
	"updated_ts": true,
}
