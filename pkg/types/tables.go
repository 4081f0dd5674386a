package types

// Standard table names for Warehouse.GetTable. The names are the storage
// names and appear verbatim in exports.
const (
	TableDate       = "dim_date"
	TableDepartment = "dim_department"
	TablePerson     = "dim_person"
	TableKPI        = "dim_kpi"
	TableStrategy   = "dim_strategy"
	TableUser       = "dim_user"
	TableKPIFact    = "fact_kpi_data"
	TableWorkItem   = "fact_work_item"
	TableWorkUpdate = "fact_work_update"
	TableMeeting    = "fact_meeting"
	TableDecision   = "fact_decision"
	TableAction     = "fact_meeting_action"
	TableInsightLog = "log_insights"
)

// StandardTableNames lists all standard table names in creation order.
var StandardTableNames = []string{
	TableDate,
	TableDepartment,
	TablePerson,
	TableKPI,
	TableStrategy,
	TableUser,
	TableKPIFact,
	TableWorkItem,
	TableWorkUpdate,
	TableMeeting,
	TableDecision,
	TableAction,
	TableInsightLog,
}

// MasterTables are replaced wholesale by administrators.
var MasterTables = []string{
	TableDepartment,
	TablePerson,
	TableKPI,
	TableStrategy,
}
