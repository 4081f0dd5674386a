// Package dateid converts calendar dates to and from the integer YYYYMMDD
// surrogate key used by the date dimension, and derives the dimension
// attributes (month, quarter, year, ISO week) for a day.
package dateid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the ISO calendar date layout stored in dim_date.date.
const Layout = "2006-01-02"

// ErrFormat is returned when an integer is not a valid YYYYMMDD date key.
var ErrFormat = errors.New("invalid date id")

// Dim is one row of the date dimension.
type Dim struct {
	DateID  int
	Date    time.Time
	Month   int
	Quarter int
	Year    int
	Week    int // ISO 8601 week number
}

// ToDateID encodes the calendar day of t as YYYYMMDD. The time-of-day and
// location are ignored; only t's own year, month and day are used.
func ToDateID(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// FromDateID decodes a YYYYMMDD key into midnight UTC of that day. It fails
// with ErrFormat when the key does not have exactly eight digits or does not
// name a real calendar day; it never clamps.
func FromDateID(id int) (time.Time, error) {
	s := strconv.Itoa(id)
	if id < 0 || len(s) != 8 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrFormat, id)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %d", ErrFormat, id)
	}
	return t, nil
}

// Parse reads an ISO date (2006-01-02) and returns its key.
func Parse(s string) (int, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	return ToDateID(t), nil
}

// ParseKey reads either an ISO date or an eight-digit key.
func ParseKey(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 && !strings.Contains(s, "-") {
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrFormat, s)
		}
		if _, err := FromDateID(id); err != nil {
			return 0, err
		}
		return id, nil
	}
	return Parse(s)
}

// Format renders a key as an ISO date. Invalid keys render as their digits.
func Format(id int) string {
	t, err := FromDateID(id)
	if err != nil {
		return strconv.Itoa(id)
	}
	return t.Format(Layout)
}

// Quarter returns the calendar quarter (1-4) of month m.
func Quarter(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// Describe derives the date-dimension attributes for the day of t.
func Describe(t time.Time) Dim {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	_, week := day.ISOWeek()
	return Dim{
		DateID:  ToDateID(day),
		Date:    day,
		Month:   int(m),
		Quarter: Quarter(m),
		Year:    y,
		Week:    week,
	}
}

// Days returns one Dim per calendar day in [start, end], inclusive. It
// returns nil when end is before start.
func Days(start, end time.Time) []Dim {
	first := Describe(start).Date
	last := Describe(end).Date
	if last.Before(first) {
		return nil
	}
	n := int(last.Sub(first).Hours()/24) + 1
	out := make([]Dim, 0, n)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, Describe(d))
	}
	return out
}

// AddDays shifts a key by n calendar days.
func AddDays(id, n int) (int, error) {
	t, err := FromDateID(id)
	if err != nil {
		return 0, err
	}
	return ToDateID(t.AddDate(0, 0, n)), nil
}
