package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Report types.
const (
	ReportKPIScorecard = "kpi-scorecard"
	ReportWorkStatus   = "work-status"
	ReportKPIDetail    = "kpi-detail"
)

// ReportTypes lists the report types in display order.
var ReportTypes = []string{ReportKPIScorecard, ReportWorkStatus, ReportKPIDetail}

// ReportParams selects a report. FromID and ToID bound the fact dates
// inclusively; the work-status report ignores them. An empty DeptID covers
// every department.
type ReportParams struct {
	Type   string
	DeptID string
	FromID int
	ToID   int
}

type reportDef struct {
	schema dataset.Schema
	query  func(p ReportParams) (string, []any)
}

var reports = map[string]reportDef{
	ReportKPIScorecard: {
		schema: dataset.Schema{
			{Name: "dept_name", Kind: dataset.KindText},
			{Name: "kpi_name", Kind: dataset.KindText},
			{Name: "avg_actual", Kind: dataset.KindNumber},
			{Name: "avg_target", Kind: dataset.KindNumber},
			{Name: "achievement", Kind: dataset.KindNumber},
		},
		query: func(p ReportParams) (string, []any) {
			q := `SELECT d.dept_name, k.kpi_name, AVG(f.actual_value), AVG(f.target_value),
				AVG(f.actual_value / NULLIF(f.target_value, 0)) * 100
				FROM fact_kpi_data f
				JOIN dim_department d ON f.dept_id = d.dept_id
				JOIN dim_kpi k ON f.kpi_id = k.kpi_id
				WHERE f.date_id BETWEEN ? AND ?`
			args := []any{p.FromID, p.ToID}
			if p.DeptID != "" {
				q += " AND f.dept_id = ?"
				args = append(args, p.DeptID)
			}
			return q + " GROUP BY d.dept_name, k.kpi_name ORDER BY d.dept_name, k.kpi_name", args
		},
	},
	ReportWorkStatus: {
		schema: dataset.Schema{
			{Name: "dept_name", Kind: dataset.KindText},
			{Name: "work_title", Kind: dataset.KindText},
			{Name: "status", Kind: dataset.KindText},
			{Name: "priority", Kind: dataset.KindText},
			{Name: "progress_percent", Kind: dataset.KindNumber},
			{Name: "risk_level", Kind: dataset.KindText},
			{Name: "due_date_id", Kind: dataset.KindNumber},
		},
		query: func(p ReportParams) (string, []any) {
			q := `SELECT d.dept_name, w.work_title, w.status, w.priority, w.progress_percent, w.risk_level, w.due_date_id
				FROM fact_work_item w
				JOIN dim_department d ON w.dept_id = d.dept_id`
			var args []any
			if p.DeptID != "" {
				q += " WHERE w.dept_id = ?"
				args = append(args, p.DeptID)
			}
			return q + " ORDER BY d.dept_name, w.priority, w.work_id", args
		},
	},
	ReportKPIDetail: {
		schema: dataset.Schema{
			{Name: "record_id", Kind: dataset.KindText},
			{Name: "date_id", Kind: dataset.KindNumber},
			{Name: "dept_id", Kind: dataset.KindText},
			{Name: "kpi_id", Kind: dataset.KindText},
			{Name: "actual_value", Kind: dataset.KindNumber},
			{Name: "target_value", Kind: dataset.KindNumber},
			{Name: "created_ts", Kind: dataset.KindDate},
			{Name: "dept_name", Kind: dataset.KindText},
			{Name: "kpi_name", Kind: dataset.KindText},
		},
		query: func(p ReportParams) (string, []any) {
			q := `SELECT f.record_id, f.date_id, f.dept_id, f.kpi_id, f.actual_value, f.target_value, f.created_ts,
				d.dept_name, k.kpi_name
				FROM fact_kpi_data f
				JOIN dim_department d ON f.dept_id = d.dept_id
				JOIN dim_kpi k ON f.kpi_id = k.kpi_id
				WHERE f.date_id BETWEEN ? AND ?`
			args := []any{p.FromID, p.ToID}
			if p.DeptID != "" {
				q += " AND f.dept_id = ?"
				args = append(args, p.DeptID)
			}
			return q + " ORDER BY f.date_id DESC, f.created_ts DESC", args
		},
	},
}

// Report runs a named report and returns its rows.
func (b *Backend) Report(ctx context.Context, p ReportParams) (*dataset.Table, error) {
	def, ok := reports[p.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownReport, p.Type)
	}
	if p.FromID > p.ToID && p.ToID != 0 {
		p.FromID, p.ToID = p.ToID, p.FromID
	}
	if p.ToID == 0 {
		p.ToID = 99991231
	}
	query, args := def.query(p)
	return b.queryTable(ctx, def.schema, query, args...)
}

// queryTable runs query and converts each result column to the kind given
// by schema.
func (b *Backend) queryTable(ctx context.Context, schema dataset.Schema, query string, args ...any) (*dataset.Table, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running report: %w", err)
	}
	defer rows.Close()

	cols := make([]column, len(schema))
	for i, c := range schema {
		cols[i] = column{name: c.Name, sqlType: sqlTypeFor(c.Kind)}
	}
	out := &dataset.Table{Schema: schema}
	raw := make([]any, len(schema))
	ptrs := make([]any, len(schema))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		row := make([]dataset.Value, len(schema))
		for i, c := range cols {
			row[i] = fromDB(c, raw[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

func sqlTypeFor(k dataset.Kind) string {
	if k == dataset.KindNumber {
		return "REAL"
	}
	return "TEXT"
}

// WorkStatusCounts counts work items per status, optionally for one
// department.
func (b *Backend) WorkStatusCounts(ctx context.Context, deptID string) (map[types.WorkStatus]int, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT status, COUNT(*) FROM fact_work_item"
	var args []any
	if deptID != "" {
		query += " WHERE dept_id = ?"
		args = append(args, deptID)
	}
	rows, err := db.QueryContext(ctx, query+" GROUP BY status", args...)
	if err != nil {
		return nil, fmt.Errorf("counting work items: %w", err)
	}
	defer rows.Close()

	out := make(map[types.WorkStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning work count: %w", err)
		}
		out[types.WorkStatus(status)] = n
	}
	return out, rows.Err()
}
