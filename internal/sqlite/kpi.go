package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// UpsertDepartment inserts or replaces a department by id.
func (b *Backend) UpsertDepartment(ctx context.Context, d types.Department) error {
	if err := types.Validate(d); err != nil {
		return err
	}
	if d.Color == "" {
		d.Color = "#3b82f6"
	}
	return b.exec(ctx, `INSERT INTO dim_department (dept_id, dept_name, dept_code, dept_head_person_id, description, color)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(dept_id) DO UPDATE SET dept_name = excluded.dept_name, dept_code = excluded.dept_code,
			dept_head_person_id = excluded.dept_head_person_id, description = excluded.description, color = excluded.color`,
		d.DeptID, d.DeptName, nullString(d.DeptCode), nullString(d.HeadPersonID), nullString(d.Description), d.Color)
}

// ListDepartments returns all departments ordered by id.
func (b *Backend) ListDepartments(ctx context.Context) ([]types.Department, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `SELECT dept_id, dept_name, COALESCE(dept_code, ''),
		COALESCE(dept_head_person_id, ''), COALESCE(description, ''), COALESCE(color, '')
		FROM dim_department ORDER BY dept_id`)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var out []types.Department
	for rows.Next() {
		var d types.Department
		if err := rows.Scan(&d.DeptID, &d.DeptName, &d.DeptCode, &d.HeadPersonID, &d.Description, &d.Color); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertPerson inserts or replaces a person by id.
func (b *Backend) UpsertPerson(ctx context.Context, p types.Person) error {
	if err := types.Validate(p); err != nil {
		return err
	}
	return b.exec(ctx, `INSERT INTO dim_person (person_id, person_name, role, department, email)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(person_id) DO UPDATE SET person_name = excluded.person_name, role = excluded.role,
			department = excluded.department, email = excluded.email`,
		p.PersonID, p.PersonName, nullString(p.Role), nullString(p.Department), nullString(p.Email))
}

// UpsertKPI inserts or replaces a KPI definition by id.
func (b *Backend) UpsertKPI(ctx context.Context, k types.KPI) error {
	if err := types.Validate(k); err != nil {
		return err
	}
	return b.exec(ctx, `INSERT INTO dim_kpi (kpi_id, kpi_name, kpi_definition, dept_id, calculation_logic, unit, target_direction)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kpi_id) DO UPDATE SET kpi_name = excluded.kpi_name, kpi_definition = excluded.kpi_definition,
			dept_id = excluded.dept_id, calculation_logic = excluded.calculation_logic, unit = excluded.unit,
			target_direction = excluded.target_direction`,
		k.KPIID, k.KPIName, nullString(k.Definition), k.DeptID, nullString(k.CalculationLogic),
		nullString(k.Unit), string(k.TargetDirection))
}

// GetKPI returns one KPI definition.
func (b *Backend) GetKPI(ctx context.Context, id string) (types.KPI, error) {
	if id == "" {
		return types.KPI{}, types.ErrInvalidID
	}
	db, release, err := b.conn()
	if err != nil {
		return types.KPI{}, err
	}
	defer release()
	return getKPI(ctx, db, id)
}

func getKPI(ctx context.Context, q querier, id string) (types.KPI, error) {
	var (
		k   types.KPI
		dir string
	)
	err := q.QueryRowContext(ctx, `SELECT kpi_id, kpi_name, COALESCE(kpi_definition, ''), COALESCE(dept_id, ''),
		COALESCE(calculation_logic, ''), COALESCE(unit, ''), target_direction
		FROM dim_kpi WHERE kpi_id = ?`, id).
		Scan(&k.KPIID, &k.KPIName, &k.Definition, &k.DeptID, &k.CalculationLogic, &k.Unit, &dir)
	if errors.Is(err, sql.ErrNoRows) {
		return types.KPI{}, fmt.Errorf("kpi %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.KPI{}, fmt.Errorf("getting kpi %s: %w", id, err)
	}
	k.TargetDirection = direction(dir)
	return k, nil
}

// ListKPIs returns the KPI definitions, optionally for one department.
func (b *Backend) ListKPIs(ctx context.Context, deptID string) ([]types.KPI, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	query := `SELECT kpi_id, kpi_name, COALESCE(kpi_definition, ''), COALESCE(dept_id, ''),
		COALESCE(calculation_logic, ''), COALESCE(unit, ''), target_direction FROM dim_kpi`
	var args []any
	if deptID != "" {
		query += " WHERE dept_id = ?"
		args = append(args, deptID)
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY kpi_id", args...)
	if err != nil {
		return nil, fmt.Errorf("listing kpis: %w", err)
	}
	defer rows.Close()

	var out []types.KPI
	for rows.Next() {
		var (
			k   types.KPI
			dir string
		)
		if err := rows.Scan(&k.KPIID, &k.KPIName, &k.Definition, &k.DeptID, &k.CalculationLogic, &k.Unit, &dir); err != nil {
			return nil, fmt.Errorf("scanning kpi: %w", err)
		}
		k.TargetDirection = direction(dir)
		out = append(out, k)
	}
	return out, rows.Err()
}

// UpsertStrategy inserts or replaces a strategy by id.
func (b *Backend) UpsertStrategy(ctx context.Context, s types.Strategy) error {
	if err := types.Validate(s); err != nil {
		return err
	}
	return b.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dim_strategy (strategy_id, strategy_name, dept_id, start_date_id, end_date_id, status)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(strategy_id) DO UPDATE SET strategy_name = excluded.strategy_name, dept_id = excluded.dept_id,
				start_date_id = excluded.start_date_id, end_date_id = excluded.end_date_id, status = excluded.status`,
			s.StrategyID, s.StrategyName, s.DeptID, nullInt(s.StartDateID), nullInt(s.EndDateID), nullString(s.Status)); err != nil {
			return fmt.Errorf("upserting strategy: %w", err)
		}
		return ensureDateSpan(ctx, tx, s.StartDateID, s.EndDateID)
	})
}

// RecordKPIFact appends a KPI measurement. The department defaults to the
// KPI's owner. The fact's day is added to the date dimension first.
func (b *Backend) RecordKPIFact(ctx context.Context, f types.KPIFact) (types.KPIFact, error) {
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		k, err := getKPI(ctx, tx, f.KPIID)
		if err != nil {
			return err
		}
		if f.DeptID == "" {
			f.DeptID = k.DeptID
		}
		if err := types.Validate(f); err != nil {
			return err
		}
		if err := ensureDateIDs(ctx, tx, f.DateID, f.DateID); err != nil {
			return err
		}
		if f.RecordID == "" {
			f.RecordID = newID(idPrefixes[types.TableKPIFact])
		}
		f.CreatedAt = b.now().UTC()
		_, err = tx.ExecContext(ctx, `INSERT INTO fact_kpi_data (record_id, date_id, dept_id, kpi_id, actual_value, target_value, created_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.RecordID, f.DateID, f.DeptID, f.KPIID, f.Actual, f.Target, formatTime(f.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting kpi fact: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.KPIFact{}, err
	}
	b.log.Debug("kpi fact recorded", "kpi", f.KPIID, "dept", f.DeptID, "date_id", f.DateID)
	return f, nil
}

// ObservationFilter narrows an Observations query. Zero fields do not filter.
type ObservationFilter struct {
	DeptID  string
	KPIID   string
	SinceID int
	UntilID int
}

// Observations returns KPI facts joined to their definitions, ordered by KPI,
// date and creation time. A fact without an actual value reads as NaN. Facts whose KPI has no definition are not returned;
// OrphanFactCount reports how many there are.
func (b *Backend) Observations(ctx context.Context, f ObservationFilter) ([]types.KPIObservation, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		where []string
		args  []any
	)
	if f.DeptID != "" {
		where = append(where, "f.dept_id = ?")
		args = append(args, f.DeptID)
	}
	if f.KPIID != "" {
		where = append(where, "f.kpi_id = ?")
		args = append(args, f.KPIID)
	}
	if f.SinceID != 0 {
		where = append(where, "f.date_id >= ?")
		args = append(args, f.SinceID)
	}
	if f.UntilID != 0 {
		where = append(where, "f.date_id <= ?")
		args = append(args, f.UntilID)
	}
	query := `SELECT f.record_id, f.date_id, f.dept_id, f.kpi_id,
		f.actual_value, COALESCE(f.target_value, 0), COALESCE(f.created_ts, ''),
		k.kpi_name, COALESCE(k.unit, ''), k.target_direction
		FROM fact_kpi_data f
		JOIN dim_kpi k ON f.kpi_id = k.kpi_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.kpi_id, f.date_id, f.created_ts, f.rowid"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var out []types.KPIObservation
	for rows.Next() {
		var (
			o       types.KPIObservation
			actual  sql.NullFloat64
			created string
			dir     string
		)
		if err := rows.Scan(&o.RecordID, &o.DateID, &o.DeptID, &o.KPIID, &actual, &o.Target, &created,
			&o.KPIName, &o.Unit, &dir); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		o.Actual = math.NaN()
		if actual.Valid {
			o.Actual = actual.Float64
		}
		o.CreatedAt = parseTimestamp(created)
		o.TargetDirection = direction(dir)
		out = append(out, o)
	}
	return out, rows.Err()
}

// OrphanFactCount counts KPI facts whose KPI id has no definition.
func (b *Backend) OrphanFactCount(ctx context.Context) (int, error) {
	return b.count(ctx, `SELECT COUNT(*) FROM fact_kpi_data f
		LEFT JOIN dim_kpi k ON f.kpi_id = k.kpi_id WHERE k.kpi_id IS NULL`)
}

func (b *Backend) exec(ctx context.Context, query string, args ...any) error {
	db, release, err := b.conn()
	if err != nil {
		return err
	}
	defer release()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// ensureDateSpan fills the dimension for optional start/end keys.
func ensureDateSpan(ctx context.Context, q querier, start, end int) error {
	switch {
	case start != 0 && end != 0 && start <= end:
		return ensureDateIDs(ctx, q, start, end)
	case start != 0 && end != 0:
		return ensureDateIDs(ctx, q, end, start)
	case start != 0:
		return ensureDateIDs(ctx, q, start, start)
	case end != 0:
		return ensureDateIDs(ctx, q, end, end)
	}
	return nil
}

// direction reads a stored target direction. Unrecognized values count as
// higher-is-better, the column default.
func direction(s string) types.TargetDirection {
	d, err := types.ParseTargetDirection(s)
	if err != nil {
		return types.HigherIsBetter
	}
	return d
}
