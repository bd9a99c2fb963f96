package core

import (
	"fmt"
	"strings"
	"time"
)

// goalTimeLayouts are tried in order by ParseGoalTime. Fractional seconds are
// accepted by time.Parse after a seconds field even when the layout omits them.
var goalTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TruncateToDate returns the part of an ISO date-time before the first "T".
// Strings without a "T" are returned unchanged.
func TruncateToDate(isoDateTime string) string {
	date, _, _ := strings.Cut(isoDateTime, "T")
	return date
}

// ParseGoalTime parses the date-times the backend uses for goal boundaries.
// Values without a zone are read as UTC.
func ParseGoalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	for _, layout := range goalTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatDateRange renders the "<start> to <end>" label shown on goal cards.
func FormatDateRange(start, end string) string {
	return TruncateToDate(start) + " to " + TruncateToDate(end)
}

// FormatTimeLeft renders the remaining days of a goal.
func FormatTimeLeft(days int) string {
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("Time Left: %d days", days)
}

// MonthRange returns the first instant of the month and the last instant
// before the next one, the window the spending summary is requested for.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}
