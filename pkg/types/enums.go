package types

import "fmt"

// TargetDirection says whether a KPI improves as its value rises or falls.
type TargetDirection string

const (
	HigherIsBetter TargetDirection = "higher_is_better"
	LowerIsBetter  TargetDirection = "lower_is_better"
)

var validTargetDirections = map[TargetDirection]bool{
	HigherIsBetter: true,
	LowerIsBetter:  true,
}

// Valid reports whether d is a known direction.
func (d TargetDirection) Valid() bool { return validTargetDirections[d] }

// ParseTargetDirection maps a stored string onto a direction. An empty string
// yields HigherIsBetter, the column default.
func ParseTargetDirection(s string) (TargetDirection, error) {
	if s == "" {
		return HigherIsBetter, nil
	}
	d := TargetDirection(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: target direction %q", ErrInvalidState, s)
	}
	return d, nil
}

// Role is a user's access role.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleExecutive Role = "Executive"
	RoleDeptHead  Role = "DeptHead"
	RoleStaff     Role = "Staff"
)

var validRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleExecutive: true,
	RoleDeptHead:  true,
	RoleStaff:     true,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return validRoles[r] }

// OrgWide reports whether the role sees every department.
func (r Role) OrgWide() bool { return r == RoleAdmin || r == RoleExecutive }

// ParseRole maps a stored string onto a role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: role %q", ErrInvalidState, s)
	}
	return r, nil
}

// RiskLevel grades a work item's delivery risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

var validRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool { return validRiskLevels[r] }

// Priority ranks work items.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return validPriorities[p] }

// WorkStatus is the lifecycle label of a work item or meeting action. Status
// changes are free assignments; there is no transition table.
type WorkStatus string

const (
	StatusOpen       WorkStatus = "Open"
	StatusPlanned    WorkStatus = "Planned"
	StatusInProgress WorkStatus = "In Progress"
	StatusAtRisk     WorkStatus = "At Risk"
	StatusOnHold     WorkStatus = "On Hold"
	StatusDone       WorkStatus = "Done"
	StatusCancelled  WorkStatus = "Cancelled"
	StatusClosed     WorkStatus = "Closed"
)

// WorkStatuses lists every status in lifecycle order.
var WorkStatuses = []WorkStatus{
	StatusOpen, StatusPlanned, StatusInProgress, StatusAtRisk,
	StatusOnHold, StatusDone, StatusCancelled, StatusClosed,
}

// Valid reports whether s is a known status.
func (s WorkStatus) Valid() bool {
	for _, known := range WorkStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultTerminalStatuses are the statuses excluded from overdue and
// high-risk scans unless configured otherwise.
var DefaultTerminalStatuses = []WorkStatus{StatusDone, StatusCancelled, StatusClosed}

// StatusSet is a set of statuses, used for the configurable terminal set.
type StatusSet map[WorkStatus]bool

// NewStatusSet builds a set from string labels. Unknown labels are kept so a
// deployment can mark its own labels terminal.
func NewStatusSet(labels ...string) StatusSet {
	s := make(StatusSet, len(labels))
	for _, l := range labels {
		s[WorkStatus(l)] = true
	}
	return s
}

// Has reports whether status is in the set.
func (s StatusSet) Has(status WorkStatus) bool { return s[status] }

// Severity grades an insight.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for display: high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// InsightCategory is the presentation class of an insight.
type InsightCategory string

const (
	InsightSuccess InsightCategory = "success"
	InsightDanger  InsightCategory = "danger"
	InsightInfo    InsightCategory = "info"
	InsightWarning InsightCategory = "warning"
)

// AchievementStatus is the target classification of a KPI reading.
type AchievementStatus string

const (
	OnTarget      AchievementStatus = "on_target"
	AtRisk        AchievementStatus = "at_risk"
	Breach        AchievementStatus = "breach"
	Informational AchievementStatus = "informational"
)

// TrendDirection is the movement of a KPI series.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
	TrendNew    TrendDirection = "new"
)
