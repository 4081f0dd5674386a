package hub

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// ImportMode selects how Import writes rows.
type ImportMode string

// Import modes.
const (
	ImportAppend  ImportMode = "append"
	ImportReplace ImportMode = "replace"
)

// ParseImportMode reads an import mode; empty means append.
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(s); m {
	case "":
		return ImportAppend, nil
	case ImportAppend, ImportReplace:
		return m, nil
	}
	return "", fmt.Errorf("%w: import mode %q", types.ErrInvalidData, s)
}

// ImportResult reports one import.
type ImportResult struct {
	Table string     `json:"table"`
	Mode  ImportMode `json:"mode"`
	Rows  int        `json:"rows"`
}

// Import writes data into table, matching columns by name. Replacing a
// table, and any write to master data or the date dimension, needs an
// admin. Department-scoped callers may only append rows of their own
// department. Login records are never imported.
func (s *Service) Import(ctx context.Context, table string, data *dataset.Table, mode ImportMode) (ImportResult, error) {
	sess, err := auth.FromContext(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	if table == types.TableUser {
		return ImportResult{}, fmt.Errorf("%w: %s cannot be imported", types.ErrForbidden, table)
	}
	t, err := s.store.GetTable(table)
	if err != nil {
		return ImportResult{}, err
	}
	if mode == ImportReplace || !isFactTable(table) {
		if err := sess.RequireAdmin(); err != nil {
			return ImportResult{}, err
		}
	}
	if !sess.Role.OrgWide() {
		if err := ownRows(sess, table, data); err != nil {
			return ImportResult{}, err
		}
	}

	switch mode {
	case ImportReplace:
		err = t.ReplaceAll(ctx, data)
	default:
		mode = ImportAppend
		err = t.Append(ctx, data)
	}
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info("import finished", "table", table, "mode", mode, "rows", data.Len(), "by", sess.Username)
	return ImportResult{Table: table, Mode: mode, Rows: data.Len()}, nil
}

func isFactTable(name string) bool {
	switch name {
	case types.TableKPIFact, types.TableWorkItem, types.TableWorkUpdate,
		types.TableMeeting, types.TableDecision, types.TableAction:
		return true
	}
	return false
}

// ownRows checks that every row of data belongs to the session's department.
func ownRows(sess auth.Session, table string, data *dataset.Table) error {
	i := data.Schema.Index("dept_id")
	if i < 0 {
		return fmt.Errorf("%w: %s rows need a dept_id column for %s", types.ErrForbidden, table, sess.Username)
	}
	for r, row := range data.Rows {
		if row[i].String() != sess.DeptID {
			return fmt.Errorf("%w: %s row %d belongs to department %q", types.ErrForbidden, table, r+1, row[i].String())
		}
	}
	return nil
}

// ReadTable returns the rows of table visible to the caller. Login records
// are never returned. Department-scoped callers see rows of their own
// department, the date dimension, and nothing from tables without a
// department column.
func (s *Service) ReadTable(ctx context.Context, table string) (*dataset.Table, error) {
	sess, scope, err := s.session(ctx, "")
	if err != nil {
		return nil, err
	}
	if table == types.TableUser {
		return nil, fmt.Errorf("%w: %s cannot be exported", types.ErrForbidden, table)
	}
	t, err := s.store.GetTable(table)
	if err != nil {
		return nil, err
	}
	data, err := t.Read(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Role.OrgWide() || table == types.TableDate {
		return data, nil
	}
	if data.Schema.Index("dept_id") < 0 {
		return nil, fmt.Errorf("%w: %s is not department scoped", types.ErrForbidden, table)
	}
	return data.Where("dept_id", dataset.Text(scope))
}

// Aggregate runs the grouping engine over a table the caller can read.
func (s *Service) Aggregate(ctx context.Context, table string, spec dataset.Spec) (*dataset.Table, error) {
	data, err := s.ReadTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return dataset.Aggregate(data, spec)
}

// Report runs a named report within the caller's scope.
func (s *Service) Report(ctx context.Context, p sqlite.ReportParams) (*dataset.Table, error) {
	_, scope, err := s.session(ctx, p.DeptID)
	if err != nil {
		return nil, err
	}
	p.DeptID = scope
	return s.store.Report(ctx, p)
}
