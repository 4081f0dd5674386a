package dataset

import (
	"errors"
	"fmt"
)

// Table errors.
var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRowLength       = errors.New("row length does not match schema")
	ErrKindMismatch    = errors.New("value kind does not match column")
	ErrNotNumeric      = errors.New("column is not numeric")
	ErrInvalidSpec     = errors.New("invalid aggregation spec")
)

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is an ordered list of columns.
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column.
func (s Schema) Column(name string) (Column, error) {
	i := s.Index(name)
	if i < 0 {
		return Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return s[i], nil
}

func (s Schema) validate() error {
	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Record is one row keyed by column name.
type Record map[string]Value

// Table is a schema plus rows. Every row has one value per column, and every
// non-null value matches its column's kind.
type Table struct {
	Schema Schema
	Rows   [][]Value
}

// NewTable returns an empty table with the given columns.
func NewTable(cols ...Column) (*Table, error) {
	s := Schema(cols)
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Table{Schema: s}, nil
}

// MustTable is NewTable for statically known schemas.
func MustTable(cols ...Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Append adds one row after checking its length and kinds.
func (t *Table) Append(row ...Value) error {
	if len(row) != len(t.Schema) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowLength, len(row), len(t.Schema))
	}
	for i, v := range row {
		if v.kind != KindNull && v.kind != t.Schema[i].Kind {
			return fmt.Errorf("%w: column %s is %s, value is %s",
				ErrKindMismatch, t.Schema[i].Name, t.Schema[i].Kind, v.kind)
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AppendRecord adds a row given by column name. Missing columns are null.
func (t *Table) AppendRecord(r Record) error {
	row := make([]Value, len(t.Schema))
	for name := range r {
		if t.Schema.Index(name) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}
	for i, c := range t.Schema {
		row[i] = r[c.Name]
	}
	return t.Append(row...)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) Record {
	r := make(Record, len(t.Schema))
	for j, c := range t.Schema {
		r[c.Name] = t.Rows[i][j]
	}
	return r
}

// Records returns every row keyed by column name.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Record(i)
	}
	return out
}

// Column returns the values of one column.
func (t *Table) Column(name string) ([]Value, error) {
	i := t.Schema.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Where returns the rows whose column equals v.
func (t *Table) Where(name string, v Value) (*Table, error) {
	i := t.Schema.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := &Table{Schema: t.Schema}
	for _, row := range t.Rows {
		if row[i].Equal(v) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
