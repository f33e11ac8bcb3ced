package model

import (
	"fmt"
	"time"
)

// DayLayout is the wire and storage format of a calendar day.
const DayLayout = "2006-01-02"

// Day is a calendar date without a time zone, e.g. "2026-01-06".
// It sorts lexically in chronological order, so it can be indexed and
// ordered as a plain string column.
type Day string

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return DayOf(t), nil
}

func (d Day) String() string {
	return string(d)
}

// Time returns midnight UTC of d.
func (d Day) Time() (time.Time, error) {
	return time.Parse(DayLayout, string(d))
}

// AddDays returns d shifted by n days. An unparsable d is returned as is.
func (d Day) AddDays(n int) Day {
	t, err := d.Time()
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, n))
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Day) (int, error) {
	f, err := from.Time()
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", from, err)
	}
	t, err := to.Time()
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", to, err)
	}
	// both are UTC midnights, so there is no DST drift
	return int(t.Sub(f).Hours() / 24), nil
}
