package sqlite

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// column is one column as reported by PRAGMA table_info.
type column struct {
	name    string
	sqlType string
	notNull bool
	pk      bool
	dflt    string
}

func (c column) kind() dataset.Kind {
	if dateColumns[c.name] {
		return dataset.KindDate
	}
	switch c.sqlType {
	case "INTEGER", "REAL":
		return dataset.KindNumber
	default:
		return dataset.KindText
	}
}

// isDateID reports whether the column holds a YYYYMMDD key.
func (c column) isDateID() bool {
	return c.sqlType == "INTEGER" && strings.HasSuffix(c.name, "date_id")
}

// toDB converts a cell to the driver value stored in column c.
func toDB(c column, v dataset.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch {
	case dateColumns[c.name]:
		return dateToDB(c, v)
	case c.isDateID():
		return dateIDToDB(c, v)
	case c.sqlType == "INTEGER":
		f, err := numberOf(c, v)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s expects an integer, got %v", types.ErrInvalidData, c.name, f)
		}
		return int64(f), nil
	case c.sqlType == "REAL":
		return numberOf(c, v)
	default:
		return v.String(), nil
	}
}

func numberOf(c column, v dataset.Value) (float64, error) {
	if f, ok := v.Float(); ok {
		return f, nil
	}
	if s, ok := v.Str(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %s expects a number, got %q", types.ErrInvalidData, c.name, v.String())
}

// dateIDToDB accepts a key as a number, a date, or an ISO date string.
func dateIDToDB(c column, v dataset.Value) (any, error) {
	if t, ok := v.Time(); ok {
		return int64(dateid.ToDateID(t)), nil
	}
	if s, ok := v.Str(); ok {
		if t, ok := dataset.ParseDate(strings.TrimSpace(s)); ok {
			return int64(dateid.ToDateID(t)), nil
		}
	}
	f, err := numberOf(c, v)
	if err != nil {
		return nil, err
	}
	id := int(f)
	if _, err := dateid.FromDateID(id); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrInvalidData, c.name, err)
	}
	return int64(id), nil
}

func dateToDB(c column, v dataset.Value) (any, error) {
	t, ok := v.Time()
	if !ok {
		s, isText := v.Str()
		if isText {
			t, ok = dataset.ParseDate(strings.TrimSpace(s))
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a date, got %q", types.ErrInvalidData, c.name, v.String())
	}
	if c.name == "date" {
		return t.Format(dateid.Layout), nil
	}
	return t.UTC().Format(tsLayout), nil
}

// fromDB converts a scanned driver value for column c into a cell.
func fromDB(c column, raw any) dataset.Value {
	if raw == nil {
		return dataset.Null()
	}
	switch c.kind() {
	case dataset.KindDate:
		s := fmt.Sprint(raw)
		if b, ok := raw.([]byte); ok {
			s = string(b)
		}
		t, ok := dataset.ParseDate(s)
		if !ok {
			return dataset.Null()
		}
		return dataset.Date(t)
	case dataset.KindNumber:
		switch n := raw.(type) {
		case int64:
			return dataset.Number(float64(n))
		case float64:
			return dataset.Number(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return dataset.Number(f)
			}
		case []byte:
			if f, err := strconv.ParseFloat(string(n), 64); err == nil {
				return dataset.Number(f)
			}
		}
		return dataset.Null()
	default:
		switch s := raw.(type) {
		case string:
			return dataset.Text(s)
		case []byte:
			return dataset.Text(string(s))
		default:
			return dataset.Text(dataset.FromAny(raw).String())
		}
	}
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt maps 0 to NULL; used for optional date keys.
func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return int64(n)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(tsLayout)
}
