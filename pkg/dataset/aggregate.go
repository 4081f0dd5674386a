package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// Func is an aggregate function.
type Func string

const (
	Sum   Func = "sum"
	Mean  Func = "mean"
	Count Func = "count"
	Min   Func = "min"
	Max   Func = "max"
)

// Valid reports whether f is a known aggregate function.
func (f Func) Valid() bool {
	switch f {
	case Sum, Mean, Count, Min, Max:
		return true
	}
	return false
}

// NoGroup is the group-by value that disables grouping.
const NoGroup = "none"

// Spec describes one aggregation run.
type Spec struct {
	GroupBy   string      `json:"group_by"`   // column name, "" or "none"
	Field     string      `json:"field"`      // numeric column to aggregate
	Funcs     []Func      `json:"funcs"`      // at least one
	DateField string      `json:"date_field"` // optional date column for bucketing
	Bucket    Granularity `json:"bucket"`     // defaults to day when DateField is set
}

// OutputName is the column name Aggregate gives to field aggregated by f.
func OutputName(field string, f Func) string {
	return field + "_" + string(f)
}

type groupKey struct {
	bucket string
	group  string
}

type group struct {
	bucket Value
	key    Value
	values []float64
}

// Aggregate groups t by an optional calendar bucket and an optional column,
// then applies each function in spec to the non-null values of spec.Field.
//
// Output columns are the date field (when bucketing), the group column (when
// grouping) and one number column per function named field_func. There is
// one row per distinct (bucket, group) pair, in order of first appearance.
// Rows whose group or date value is null are skipped. A group whose field
// values are all null still appears: count and sum are zero, the others null.
func Aggregate(t *Table, spec Spec) (*Table, error) {
	fieldIdx, groupIdx, dateIdx, err := spec.resolve(t.Schema)
	if err != nil {
		return nil, err
	}
	bucket := spec.Bucket
	if dateIdx >= 0 && bucket == "" {
		bucket = Day
	}

	var cols []Column
	if dateIdx >= 0 {
		cols = append(cols, Column{Name: spec.DateField, Kind: KindDate})
	}
	if groupIdx >= 0 {
		cols = append(cols, t.Schema[groupIdx])
	}
	for _, f := range spec.Funcs {
		cols = append(cols, Column{Name: OutputName(spec.Field, f), Kind: KindNumber})
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	index := make(map[groupKey]*group)
	var order []*group
	for _, row := range t.Rows {
		var k groupKey
		g := &group{}
		if dateIdx >= 0 {
			d, ok := row[dateIdx].Time()
			if !ok {
				continue
			}
			start := Truncate(d, bucket)
			k.bucket = start.Format(time.RFC3339)
			g.bucket = Date(start)
		}
		if groupIdx >= 0 {
			gv := row[groupIdx]
			if gv.IsNull() {
				continue
			}
			k.group = gv.String()
			g.key = gv
		}
		existing, ok := index[k]
		if !ok {
			index[k] = g
			order = append(order, g)
			existing = g
		}
		if f, ok := row[fieldIdx].Float(); ok {
			existing.values = append(existing.values, f)
		}
	}

	for _, g := range order {
		var row []Value
		if dateIdx >= 0 {
			row = append(row, g.bucket)
		}
		if groupIdx >= 0 {
			row = append(row, g.key)
		}
		for _, f := range spec.Funcs {
			row = append(row, apply(f, g.values))
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s Spec) resolve(schema Schema) (field, grp, date int, err error) {
	grp, date = -1, -1
	if s.Field == "" {
		return 0, 0, 0, fmt.Errorf("%w: aggregate field is required", ErrInvalidSpec)
	}
	if len(s.Funcs) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: at least one function is required", ErrInvalidSpec)
	}
	for _, f := range s.Funcs {
		if !f.Valid() {
			return 0, 0, 0, fmt.Errorf("%w: unknown function %q", ErrInvalidSpec, f)
		}
	}
	if s.Bucket != "" && !s.Bucket.Valid() {
		return 0, 0, 0, fmt.Errorf("%w: unknown granularity %q", ErrInvalidSpec, s.Bucket)
	}
	if s.Bucket != "" && s.DateField == "" {
		return 0, 0, 0, fmt.Errorf("%w: granularity needs a date field", ErrInvalidSpec)
	}

	col, err := schema.Column(s.Field)
	if err != nil {
		return 0, 0, 0, err
	}
	if col.Kind != KindNumber {
		return 0, 0, 0, fmt.Errorf("%w: %s is %s", ErrNotNumeric, col.Name, col.Kind)
	}
	field = schema.Index(s.Field)

	if s.GroupBy != "" && !strings.EqualFold(s.GroupBy, NoGroup) {
		if grp = schema.Index(s.GroupBy); grp < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %s", ErrUnknownColumn, s.GroupBy)
		}
	}
	if s.DateField != "" {
		dc, err := schema.Column(s.DateField)
		if err != nil {
			return 0, 0, 0, err
		}
		if dc.Kind != KindDate {
			return 0, 0, 0, fmt.Errorf("%w: %s is %s, not a date", ErrInvalidSpec, dc.Name, dc.Kind)
		}
		date = schema.Index(s.DateField)
	}
	return field, grp, date, nil
}

func apply(f Func, values []float64) Value {
	switch f {
	case Count:
		return Number(float64(len(values)))
	case Sum:
		if len(values) == 0 {
			return Number(0)
		}
	}
	if len(values) == 0 {
		return Null()
	}
	var (
		r   float64
		err error
	)
	switch f {
	case Sum:
		r, err = stats.Sum(values)
	case Mean:
		r, err = stats.Mean(values)
	case Min:
		r, err = stats.Min(values)
	case Max:
		r, err = stats.Max(values)
	}
	if err != nil {
		return Null()
	}
	return Number(r)
}
