// Package dataset holds typed tabular data: a tagged cell value, an ordered
// schema of typed columns, tables of rows, and the grouping/aggregation engine
// that runs over them.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the type tag of a Value and of a Column.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is one cell: a number, a text, a date, or null.
type Value struct {
	kind Kind
	num  float64
	text string
	date time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value. NaN is stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the number held by v.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Time returns the date held by v.
func (v Value) Time() (time.Time, bool) {
	return v.date, v.kind == KindDate
}

// Str returns the text held by v.
func (v Value) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// String renders v for display and for text-based file formats. Null renders
// as the empty string, dates at midnight as YYYY-MM-DD.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindDate:
		return formatDate(v.date)
	default:
		return ""
	}
}

// Any returns v as a plain Go value: nil, float64, string or time.Time.
func (v Value) Any() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindDate:
		return v.date
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindDate:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

// MarshalJSON encodes numbers as JSON numbers, text and dates as strings,
// and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindDate:
		return json.Marshal(formatDate(v.date))
	default:
		return []byte("null"), nil
	}
}

// FromAny wraps a scanned or decoded Go value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case bool:
		if t {
			return Number(1)
		}
		return Number(0)
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case time.Time:
		return Date(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	default:
		return Text(fmt.Sprint(t))
	}
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
