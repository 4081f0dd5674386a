package types

import "time"

// Department is a row of dim_department.
type Department struct {
	DeptID       string `json:"dept_id" yaml:"dept_id" validate:"required"`
	DeptName     string `json:"dept_name" yaml:"dept_name" validate:"required"`
	DeptCode     string `json:"dept_code" yaml:"dept_code"`
	HeadPersonID string `json:"dept_head_person_id" yaml:"dept_head_person_id"`
	Description  string `json:"description" yaml:"description"`
	Color        string `json:"color" yaml:"color"`
}

// Person is a row of dim_person. Role is a free-text job title, not an
// access role.
type Person struct {
	PersonID   string `json:"person_id" yaml:"person_id" validate:"required"`
	PersonName string `json:"person_name" yaml:"person_name" validate:"required"`
	Role       string `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	Email      string `json:"email" yaml:"email" validate:"omitempty,email"`
}

// KPI is a KPI definition (dim_kpi).
type KPI struct {
	KPIID            string          `json:"kpi_id" yaml:"kpi_id" validate:"required"`
	KPIName          string          `json:"kpi_name" yaml:"kpi_name" validate:"required"`
	Definition       string          `json:"kpi_definition" yaml:"kpi_definition"`
	DeptID           string          `json:"dept_id" yaml:"dept_id" validate:"required"`
	CalculationLogic string          `json:"calculation_logic" yaml:"calculation_logic"`
	Unit             string          `json:"unit" yaml:"unit"`
	TargetDirection  TargetDirection `json:"target_direction" yaml:"target_direction" validate:"required,enum"`
}

// Strategy is a strategic initiative work items can roll up to.
type Strategy struct {
	StrategyID   string `json:"strategy_id" yaml:"strategy_id" validate:"required"`
	StrategyName string `json:"strategy_name" yaml:"strategy_name" validate:"required"`
	DeptID       string `json:"dept_id" yaml:"dept_id" validate:"required"`
	StartDateID  int    `json:"start_date_id" yaml:"start_date_id"`
	EndDateID    int    `json:"end_date_id" yaml:"end_date_id"`
	Status       string `json:"status" yaml:"status"`
}

// KPIFact is one measured KPI value on one day (fact_kpi_data). Facts are
// append-only; several facts may share (date, department, KPI). A zero
// target means no target was set.
type KPIFact struct {
	RecordID  string    `json:"record_id"`
	DateID    int       `json:"date_id" validate:"required,gte=10000101,lte=99991231"`
	DeptID    string    `json:"dept_id" validate:"required"`
	KPIID     string    `json:"kpi_id" validate:"required"`
	Actual    float64   `json:"actual_value"`
	Target    float64   `json:"target_value"`
	CreatedAt time.Time `json:"created_ts"`
}

// KPIObservation is a fact joined to its KPI definition.
type KPIObservation struct {
	KPIFact
	KPIName         string          `json:"kpi_name"`
	Unit            string          `json:"unit"`
	TargetDirection TargetDirection `json:"target_direction"`
}

// WorkItem is a tracked deliverable (fact_work_item). ProgressPercent caches
// the progress of the latest WorkUpdate.
type WorkItem struct {
	WorkID          string     `json:"work_id"`
	DeptID          string     `json:"dept_id" validate:"required"`
	StrategyID      string     `json:"strategy_id"`
	KPIID           string     `json:"kpi_id"`
	ActionID        string     `json:"source_action_id"`
	OwnerPersonID   string     `json:"owner_person_id"`
	Title           string     `json:"work_title" validate:"required"`
	WorkType        string     `json:"work_type"`
	Priority        Priority   `json:"priority" validate:"omitempty,enum"`
	Status          WorkStatus `json:"status" validate:"required,enum"`
	ProgressPercent float64    `json:"progress_percent" validate:"gte=0,lte=100"`
	StartDateID     int        `json:"start_date_id"`
	DueDateID       int        `json:"due_date_id"`
	RiskLevel       RiskLevel  `json:"risk_level" validate:"omitempty,enum"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_ts"`
	UpdatedAt       time.Time  `json:"updated_ts"`
}

// WorkUpdate is an append-only progress report on a work item.
type WorkUpdate struct {
	UpdateID        string    `json:"update_id"`
	WorkID          string    `json:"work_id" validate:"required"`
	DateID          int       `json:"date_id" validate:"required,gte=10000101,lte=99991231"`
	ProgressPercent float64   `json:"progress_percent" validate:"gte=0,lte=100"`
	Narrative       string    `json:"update_text"`
	Blockers        string    `json:"blockers"`
	DecisionNeeded  bool      `json:"decision_needed"`
	CreatedAt       time.Time `json:"created_ts"`
}

// Meeting is a recorded meeting (fact_meeting).
type Meeting struct {
	MeetingID         string    `json:"meeting_id"`
	DateID            int       `json:"date_id" validate:"required,gte=10000101,lte=99991231"`
	DeptID            string    `json:"dept_id" validate:"required"`
	Title             string    `json:"meeting_title" validate:"required"`
	MeetingType       string    `json:"meeting_type"`
	OrganizerPersonID string    `json:"organizer_person_id"`
	Minutes           string    `json:"minutes"`
	CreatedAt         time.Time `json:"created_ts"`
}

// Decision is a decision taken in a meeting.
type Decision struct {
	DecisionID   string    `json:"decision_id"`
	MeetingID    string    `json:"meeting_id" validate:"required"`
	DeptID       string    `json:"dept_id" validate:"required"`
	DecisionText string    `json:"decision_text" validate:"required"`
	DecidedBy    string    `json:"decided_by"`
	CreatedAt    time.Time `json:"created_ts"`
}

// ActionItem is a follow-up assigned in a meeting. LinkedWorkID is set once,
// when the action is promoted to a work item.
type ActionItem struct {
	ActionID        string     `json:"action_id"`
	MeetingID       string     `json:"meeting_id"`
	DecisionID      string     `json:"decision_id"`
	DeptID          string     `json:"dept_id" validate:"required"`
	OwnerPersonID   string     `json:"owner_person_id"`
	Title           string     `json:"action_title" validate:"required"`
	Status          WorkStatus `json:"status" validate:"required,enum"`
	DueDateID       int        `json:"due_date_id"`
	ProgressPercent float64    `json:"progress_percent" validate:"gte=0,lte=100"`
	LinkedWorkID    string     `json:"linked_work_id"`
	CreatedAt       time.Time  `json:"created_ts"`
	UpdatedAt       time.Time  `json:"updated_ts"`
}

// User is a login record (dim_user). PasswordHash is a hex SHA-256 digest.
type User struct {
	Username     string `json:"username" yaml:"username" validate:"required"`
	PasswordHash string `json:"password_hash" yaml:"-" validate:"required,len=64,hexadecimal"`
	Role         Role   `json:"role" yaml:"role" validate:"required,enum"`
	DeptID       string `json:"dept_id" yaml:"dept_id"`
	PersonID     string `json:"person_id" yaml:"person_id"`
	Enabled      bool   `json:"is_enabled" yaml:"is_enabled"`
}

// Insight is a generated natural-language finding.
type Insight struct {
	InsightID  string          `json:"insight_id,omitempty"`
	DeptID     string          `json:"dept_id"`
	Category   InsightCategory `json:"insight_type"`
	Severity   Severity        `json:"severity"`
	MetricName string          `json:"metric_name"`
	Text       string          `json:"insight_text"`
	IsRead     bool            `json:"is_read"`
	CreatedAt  time.Time       `json:"created_ts"`
}
