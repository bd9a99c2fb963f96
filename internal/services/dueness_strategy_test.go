package services

import (
	"errors"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestDailyChecker_IsDue(t *testing.T) {
	checker := DailyChecker{}
	now := at(2025, 3, 15, 12)
	start := at(2025, 3, 1, 0)

	tests := []struct {
		name          string
		lastExecution time.Time
		want          bool
	}{
		{name: "never executed", lastExecution: time.Time{}, want: true},
		{name: "executed earlier today", lastExecution: at(2025, 3, 15, 8), want: false},
		{name: "executed yesterday", lastExecution: at(2025, 3, 14, 23), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastExecution, now, start); got != tt.want {
				t.Errorf("DailyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := at(2025, 3, 15, 12)
	start := at(2025, 3, 1, 0)

	tests := []struct {
		name          string
		lastExecution time.Time
		want          bool
	}{
		{name: "never executed", lastExecution: time.Time{}, want: true},
		{name: "executed six days ago", lastExecution: at(2025, 3, 9, 12), want: false},
		{name: "executed exactly a week ago", lastExecution: at(2025, 3, 8, 12), want: true},
		{name: "executed two weeks ago", lastExecution: at(2025, 3, 1, 12), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastExecution, now, start); got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name          string
		lastExecution time.Time
		now           time.Time
		start         time.Time
		want          bool
	}{
		{name: "never executed", now: at(2025, 3, 2, 0), start: at(2025, 1, 20, 0), want: true},
		{name: "already ran this month", lastExecution: at(2025, 3, 20, 0), now: at(2025, 3, 28, 0), start: at(2025, 1, 20, 0), want: false},
		{name: "before the start day", lastExecution: at(2025, 2, 20, 0), now: at(2025, 3, 19, 0), start: at(2025, 1, 20, 0), want: false},
		{name: "on the start day", lastExecution: at(2025, 2, 20, 0), now: at(2025, 3, 20, 0), start: at(2025, 1, 20, 0), want: true},
		{name: "start day clamped in february", lastExecution: at(2025, 1, 31, 0), now: at(2025, 2, 28, 0), start: at(2025, 1, 31, 0), want: true},
		{name: "leap february clamps to 29", lastExecution: at(2024, 1, 31, 0), now: at(2024, 2, 28, 0), start: at(2024, 1, 31, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastExecution, tt.now, tt.start); got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyChecker_IsDue(t *testing.T) {
	checker := YearlyChecker{}
	start := at(2024, 6, 15, 0)

	tests := []struct {
		name          string
		lastExecution time.Time
		now           time.Time
		want          bool
	}{
		{name: "never executed", now: at(2024, 6, 15, 0), want: true},
		{name: "already ran this year", lastExecution: at(2025, 6, 15, 0), now: at(2025, 12, 1, 0), want: false},
		{name: "earlier month", lastExecution: at(2024, 6, 15, 0), now: at(2025, 5, 30, 0), want: false},
		{name: "same month before the day", lastExecution: at(2024, 6, 15, 0), now: at(2025, 6, 14, 0), want: false},
		{name: "anniversary", lastExecution: at(2024, 6, 15, 0), now: at(2025, 6, 15, 0), want: true},
		{name: "later month", lastExecution: at(2024, 6, 15, 0), now: at(2025, 8, 1, 0), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastExecution, tt.now, start); got != tt.want {
				t.Errorf("YearlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, every := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetDuenessChecker(every); err != nil {
			t.Errorf("GetDuenessChecker(%q) error = %v", every, err)
		}
	}
	if _, err := GetDuenessChecker("hourly"); !errors.Is(err, core.ErrInvalidFrequency) {
		t.Errorf("GetDuenessChecker(hourly) error = %v, want ErrInvalidFrequency", err)
	}
}
