package timeutil

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}

// StartOfMonth returns midnight of the first day of t's month in UTC
func StartOfMonth(t time.Time) time.Time {
	year, month, _ := t.UTC().Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// ParseBound parses a query-string date bound. RFC 3339 timestamps are used
// as given; a bare YYYY-MM-DD date expands to the start of that day, or to
// its end when endOfDay is set.
func ParseBound(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date, got %q", value)
	}
	if endOfDay {
		return EndOfDay(t), nil
	}
	return StartOfDay(t), nil
}
