package core

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleDates(t *testing.T) {
	dates, err := ScheduleDates(day(2025, 3, 1), day(2025, 3, 29), 7)
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{day(2025, 3, 1), day(2025, 3, 8), day(2025, 3, 15), day(2025, 3, 22), day(2025, 3, 29)}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("date %d = %v, want %v", i, dates[i], want[i])
		}
	}

	one, err := ScheduleDates(day(2025, 3, 1), day(2025, 3, 1), 30)
	if err != nil || len(one) != 1 {
		t.Errorf("same day schedule = %v, %v", one, err)
	}
}

func TestScheduleDatesRejects(t *testing.T) {
	if _, err := ScheduleDates(day(2025, 3, 1), day(2025, 3, 2), 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("zero period: %v", err)
	}
	if _, err := ScheduleDates(day(2025, 3, 2), day(2025, 3, 1), 1); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("reversed window: %v", err)
	}
	if _, err := ScheduleDates(day(2000, 1, 1), day(2025, 1, 1), 1); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("oversized schedule: %v", err)
	}
}

func TestParseFrequency(t *testing.T) {
	for in, want := range map[string]Frequency{"daily": Daily, " Weekly ": Weekly, "MONTHLY": Monthly, "yearly": Yearly} {
		got, err := ParseFrequency(in)
		if err != nil || got != want {
			t.Errorf("ParseFrequency(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFrequency("hourly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	ok := RecurringRule{Amount: 9.99, CategoryID: 2, TransactionType: "expense", Every: Monthly, StartDate: day(2025, 1, 31)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := RecurringRule{Amount: -1, TransactionType: "gift", Every: "hourly", StartDate: day(2025, 2, 1), EndDate: day(2025, 1, 1)}
	err := bad.Validate()
	for _, target := range []error{ErrInvalidAmount, ErrInvalidFrequency, ErrInvalidDate} {
		if !errors.Is(err, target) {
			t.Errorf("expected %v in %v", target, err)
		}
	}
}

func TestRecurringRuleActiveAt(t *testing.T) {
	r := RecurringRule{StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 31)}
	cases := map[time.Time]bool{
		day(2025, 2, 28): false,
		day(2025, 3, 1):  true,
		day(2025, 3, 31): true,
		day(2025, 4, 1):  false,
	}
	for now, want := range cases {
		if got := r.ActiveAt(now); got != want {
			t.Errorf("ActiveAt(%v) = %v, want %v", now, got, want)
		}
	}
	r.EndDate = time.Time{}
	if !r.ActiveAt(day(2030, 1, 1)) {
		t.Error("open ended rule should stay active")
	}
}
