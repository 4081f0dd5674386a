package dataset

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the text forms recognised as dates, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate reads a date in one of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// InferKind picks the narrowest kind that every non-empty cell parses as:
// number, then date, then text. A column of empty cells is text.
func InferKind(cells []string) Kind {
	numeric, dated, seen := true, true, false
	for _, c := range cells {
		if strings.TrimSpace(c) == "" {
			continue
		}
		seen = true
		if numeric {
			if _, ok := parseNumber(c); !ok {
				numeric = false
			}
		}
		if dated {
			if _, ok := ParseDate(c); !ok {
				dated = false
			}
		}
		if !numeric && !dated {
			return KindText
		}
	}
	switch {
	case !seen:
		return KindText
	case numeric:
		return KindNumber
	case dated:
		return KindDate
	default:
		return KindText
	}
}

// ParseCell converts a text cell to a value of kind k. Empty cells are null;
// cells that do not parse fall back to text.
func ParseCell(s string, k Kind) Value {
	if strings.TrimSpace(s) == "" {
		return Null()
	}
	switch k {
	case KindNumber:
		if f, ok := parseNumber(s); ok {
			return Number(f)
		}
	case KindDate:
		if t, ok := ParseDate(s); ok {
			return Date(t)
		}
	}
	return Text(s)
}

// FromStrings builds a table from a header and text rows, inferring one kind
// per column. Short rows are padded with nulls; extra cells are dropped.
func FromStrings(header []string, rows [][]string) (*Table, error) {
	cols := make([]Column, len(header))
	for i, name := range header {
		cells := make([]string, 0, len(rows))
		for _, r := range rows {
			if i < len(r) {
				cells = append(cells, r[i])
			}
		}
		cols[i] = Column{Name: strings.TrimSpace(name), Kind: InferKind(cells)}
	}
	t, err := NewTable(cols...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		row := make([]Value, len(cols))
		for i, c := range cols {
			if i < len(r) {
				row[i] = ParseCell(r[i], c.Kind)
			}
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
