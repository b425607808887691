package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of calendar days.
const DateLayout = "2006-01-02"

// TruncateToDay returns midnight UTC of t's calendar day (in t's own location).
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	t, err := time.ParseInLocation(DateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Today returns the current UTC calendar day according to now.
func Today(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return TruncateToDay(now().UTC())
}
