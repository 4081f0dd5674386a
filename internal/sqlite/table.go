package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var _ types.Table = (*Table)(nil)

// Table is the generic tabular accessor for one storage table. Imports,
// exports, the data workspace and master-data edits go through it; the typed
// operations on Backend cover the domain workflows.
type Table struct {
	backend *Backend
	name    string
	cols    []column
	key     string
	prefix  string // generated-key prefix; empty when callers supply keys
}

// Name returns the storage table name.
func (t *Table) Name() string { return t.name }

// Key returns the primary-key column.
func (t *Table) Key() string { return t.key }

// Schema returns the typed columns in storage order.
func (t *Table) Schema() dataset.Schema {
	s := make(dataset.Schema, len(t.cols))
	for i, c := range t.cols {
		s[i] = dataset.Column{Name: c.name, Kind: c.kind()}
	}
	return s
}

func (t *Table) column(name string) (column, bool) {
	for _, c := range t.cols {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (t *Table) has(name string) bool {
	_, ok := t.column(name)
	return ok
}

// Read returns every row in insertion order.
func (t *Table) Read(ctx context.Context) (*dataset.Table, error) {
	db, release, err := t.backend.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(names, ", "), t.name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.name, err)
	}
	defer rows.Close()

	out := &dataset.Table{Schema: t.Schema()}
	raw := make([]any, len(t.cols))
	ptrs := make([]any, len(t.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}
		row := make([]dataset.Value, len(t.cols))
		for i, c := range t.cols {
			row[i] = fromDB(c, raw[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.name, err)
	}
	return out, nil
}

// ReplaceAll deletes every row and inserts data in one transaction.
func (t *Table) ReplaceAll(ctx context.Context, data *dataset.Table) error {
	if err := t.checkColumns(data.Schema); err != nil {
		return err
	}
	err := t.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
			return fmt.Errorf("clearing %s: %w", t.name, err)
		}
		return t.insertRows(ctx, tx, data)
	})
	if err != nil {
		return err
	}
	t.backend.log.Info("table replaced", "table", t.name, "rows", data.Len())
	return nil
}

// Append inserts data. Rows without a key get a generated one on tables that
// generate keys; elsewhere a missing key is ErrMissingKey.
func (t *Table) Append(ctx context.Context, data *dataset.Table) error {
	if err := t.checkColumns(data.Schema); err != nil {
		return err
	}
	err := t.backend.withTx(ctx, func(tx *sql.Tx) error {
		return t.insertRows(ctx, tx, data)
	})
	if err != nil {
		return err
	}
	t.backend.log.Debug("table appended", "table", t.name, "rows", data.Len())
	return nil
}

// Upsert inserts rec, or updates the columns present in rec when a row with
// the same key exists. Absent columns keep their stored values.
func (t *Table) Upsert(ctx context.Context, rec dataset.Record) error {
	names := make([]string, 0, len(rec))
	for _, c := range t.cols {
		if _, ok := rec[c.name]; ok {
			names = append(names, c.name)
		}
	}
	if len(names) != len(rec) {
		for name := range rec {
			if !t.has(name) {
				return fmt.Errorf("%s: %w: %s", t.name, dataset.ErrUnknownColumn, name)
			}
		}
	}

	keyVal := rec[t.key]
	if keyVal.IsNull() || keyVal.String() == "" {
		return fmt.Errorf("%s: %w: %s", t.name, types.ErrMissingKey, t.key)
	}

	stamp := t.backend.timestamp()
	var (
		cols []string
		args []any
		sets []string
		vals []any
	)
	for _, name := range names {
		c, _ := t.column(name)
		v, err := toDB(c, rec[name])
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		cols = append(cols, name)
		args = append(args, v)
		if name != t.key {
			sets = append(sets, name+" = ?")
			vals = append(vals, v)
		}
	}
	if t.has("updated_ts") && !contains(names, "updated_ts") {
		sets = append(sets, "updated_ts = ?")
		vals = append(vals, stamp)
	}
	keyArg := args[indexOf(cols, t.key)]

	return t.backend.withTx(ctx, func(tx *sql.Tx) error {
		// NOT NULL checks run before conflict resolution, so a partial row
		// cannot go through INSERT ... ON CONFLICT.
		updated := int64(0)
		if len(sets) > 0 {
			res, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.name, strings.Join(sets, ", "), t.key),
				append(vals, keyArg)...)
			if err != nil {
				return fmt.Errorf("updating %s: %w", t.name, err)
			}
			updated, _ = res.RowsAffected()
		}
		if updated == 0 {
			insCols, insArgs := cols, args
			if t.has("created_ts") && !contains(cols, "created_ts") {
				insCols = append(insCols, "created_ts")
				insArgs = append(insArgs, stamp)
			}
			if t.has("updated_ts") && !contains(cols, "updated_ts") {
				insCols = append(insCols, "updated_ts")
				insArgs = append(insArgs, stamp)
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO NOTHING",
				t.name, strings.Join(insCols, ", "), t.placeholders(insCols), t.key), insArgs...)
			if err != nil {
				return fmt.Errorf("inserting %s: %w", t.name, err)
			}
		}
		return t.ensureRowDates(ctx, tx, cols, [][]any{args})
	})
}

func (t *Table) checkColumns(s dataset.Schema) error {
	for _, c := range s {
		if !t.has(c.Name) {
			return fmt.Errorf("%s: %w: %s", t.name, dataset.ErrUnknownColumn, c.Name)
		}
	}
	return nil
}

// placeholders renders the VALUES list. Columns with a default coalesce NULL
// into the default, since an explicit NULL would bypass it.
func (t *Table) placeholders(cols []string) string {
	ph := make([]string, len(cols))
	for i, name := range cols {
		c, _ := t.column(name)
		if c.dflt != "" {
			ph[i] = "COALESCE(?, " + c.dflt + ")"
			continue
		}
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// insertRows inserts every row of data with one prepared statement, filling
// generated keys and creation timestamps the rows do not carry.
func (t *Table) insertRows(ctx context.Context, tx *sql.Tx, data *dataset.Table) error {
	if data.Len() == 0 {
		return nil
	}
	cols := data.Schema.Names()
	keyIdx := data.Schema.Index(t.key)
	if keyIdx < 0 {
		if t.prefix == "" {
			return fmt.Errorf("%s: %w: %s", t.name, types.ErrMissingKey, t.key)
		}
		cols = append(cols, t.key)
		keyIdx = len(cols) - 1
	}
	stampCreated := t.has("created_ts") && data.Schema.Index("created_ts") < 0
	if stampCreated {
		cols = append(cols, "created_ts")
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(cols, ", "), t.placeholders(cols)))
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", t.name, err)
	}
	defer stmt.Close()

	stamp := t.backend.timestamp()
	all := make([][]any, 0, data.Len())
	for r, row := range data.Rows {
		args := make([]any, len(cols))
		for i, v := range row {
			c, _ := t.column(cols[i])
			if args[i], err = toDB(c, v); err != nil {
				return fmt.Errorf("%s row %d: %w", t.name, r+1, err)
			}
		}
		if args[keyIdx] == nil || args[keyIdx] == "" {
			if t.prefix == "" {
				return fmt.Errorf("%s row %d: %w: %s", t.name, r+1, types.ErrMissingKey, t.key)
			}
			args[keyIdx] = newID(t.prefix)
		}
		if stampCreated {
			args[len(args)-1] = stamp
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", t.name, r+1, err)
		}
		all = append(all, args)
	}
	return t.ensureRowDates(ctx, tx, cols, all)
}

// ensureRowDates fills the date dimension for the date keys a fact write
// used.
func (t *Table) ensureRowDates(ctx context.Context, q querier, cols []string, rows [][]any) error {
	if t.name == types.TableDate {
		return nil
	}
	var ids []int
	for i, name := range cols {
		c, _ := t.column(name)
		if !c.isDateID() {
			continue
		}
		for _, args := range rows {
			if id, ok := args[i].(int64); ok && id != 0 {
				ids = append(ids, int(id))
			}
		}
	}
	return ensureDates(ctx, q, ids)
}

func contains(list []string, s string) bool {
	return indexOf(list, s) >= 0
}

func indexOf(list []string, s string) int {
	for i, x := range list {
		if x == s {
			return i
		}
	}
	return -1
}
