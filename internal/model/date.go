package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the textual form of a Date (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no timezone.
// The zero value means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for y-m-d. Out-of-range values are normalized
// the same way time.Date does (e.g. 2024-02-30 becomes 2024-03-01).
func NewDate(y int, m time.Month, d int) Date {
	return DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) Equal(o Date) bool  { return d == o }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// AddMonths returns d shifted by n months with time.Date normalization, so
// Jan 31 + 1 month is Mar 2 (or Mar 3). Callers that need the same
// day-of-month must check Day on the result.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year, d.Month+time.Month(n), d.Day)
}

// DaysIn returns the number of days in d's month.
func (d Date) DaysIn() int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler (used by JSON and YAML).
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value leaves
// the date unset.
func (d *Date) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
