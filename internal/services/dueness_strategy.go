package services

import (
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// DuenessChecker decides whether a recurring rule should post again.
type DuenessChecker interface {
	// IsDue reports whether a rule last run at lastExecution (zero when it
	// never ran) is due at now.
	IsDue(lastExecution, now, start time.Time) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return lastExecution.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker is due seven days after the last run.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution) >= 7*24*time.Hour
}

// MonthlyChecker is due once per month, on or after the start day. Short
// months clamp the day to their last one.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now, start time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), start.Day())
}

// YearlyChecker is due once per year, on or after the start month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now, start time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < start.Month():
		return false
	case now.Month() > start.Month():
		return true
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), start.Day())
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(every core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[every]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, every)
	}
	return checker, nil
}
