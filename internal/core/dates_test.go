package core

import (
	"errors"
	"testing"
	"time"
)

func TestTruncateToDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-01T10:20:30":      "2025-03-01",
		"2025-03-01T00:00:00.000Z": "2025-03-01",
		"2025-03-01":               "2025-03-01",
		"":                         "",
		"no delimiter here":        "no delimiter here",
		"T12:00":                   "",
	}
	for in, want := range cases {
		if got := TruncateToDate(in); got != want {
			t.Errorf("TruncateToDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseGoalTime(t *testing.T) {
	want := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	for _, in := range []string{
		"2025-03-31T23:59:59",
		"2025-03-31T23:59:59Z",
		"2025-03-31T23:59:59+00:00",
		" 2025-03-31 23:59:59 ",
	} {
		got, err := ParseGoalTime(in)
		if err != nil {
			t.Fatalf("ParseGoalTime(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseGoalTime(%q) = %v, want %v", in, got, want)
		}
	}

	got, err := ParseGoalTime("2025-03-31T23:59:59.250")
	if err != nil {
		t.Fatalf("fractional seconds: %v", err)
	}
	if got.Nanosecond() != 250_000_000 {
		t.Errorf("fractional seconds lost: %v", got)
	}

	if _, err := ParseGoalTime("2025-03-31"); err != nil {
		t.Errorf("date only: %v", err)
	}

	for _, bad := range []string{"", "yesterday", "31/03/2025"} {
		if _, err := ParseGoalTime(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseGoalTime(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestFormatDateRangeAndTimeLeft(t *testing.T) {
	if got := FormatDateRange("2025-03-01T00:00:00", "2025-03-31T23:59:59"); got != "2025-03-01 to 2025-03-31" {
		t.Errorf("date range = %q", got)
	}
	if got := FormatTimeLeft(12); got != "Time Left: 12 days" {
		t.Errorf("time left = %q", got)
	}
	if got := FormatTimeLeft(-3); got != "Time Left: 0 days" {
		t.Errorf("negative time left = %q", got)
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.February, nil)
	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
