package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// maxScheduleDates bounds how many dates a backend schedule may expand to.
const maxScheduleDates = 1000

// Frequency is how often a local recurring rule posts a transaction.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// RecurringRule is an open ended schedule kept locally. Each time it falls
// due a transaction is posted for the owning profile.
type RecurringRule struct {
	ID              int64     `json:"id"`
	Profile         string    `json:"profile"`
	Amount          float64   `json:"amount"`
	CategoryID      int64     `json:"category_id"`
	TransactionType string    `json:"transaction_type"`
	Note            string    `json:"note,omitempty"`
	Vendor          string    `json:"vendor,omitempty"`
	Every           Frequency `json:"every"`
	StartDate       time.Time `json:"start_date"`
	// EndDate is zero for rules that never end.
	EndDate       time.Time `json:"end_date,omitempty"`
	LastExecution time.Time `json:"last_execution,omitempty"`
}

// Validate collects every problem with the rule.
func (r RecurringRule) Validate() error {
	var errs []error
	if r.Amount <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive", ErrInvalidAmount))
	}
	if r.CategoryID <= 0 {
		errs = append(errs, errors.New("category is required"))
	}
	if r.TransactionType != "expense" && r.TransactionType != "income" {
		errs = append(errs, fmt.Errorf("transaction type must be expense or income, got %q", r.TransactionType))
	}
	if _, err := ParseFrequency(string(r.Every)); err != nil {
		errs = append(errs, err)
	}
	if r.StartDate.IsZero() {
		errs = append(errs, fmt.Errorf("%w: start date is required", ErrInvalidDate))
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		errs = append(errs, fmt.Errorf("%w: end date before start date", ErrInvalidDate))
	}
	return errors.Join(errs...)
}

// ActiveAt reports whether the rule may post on day now.
func (r RecurringRule) ActiveAt(now time.Time) bool {
	if now.Before(r.StartDate) {
		return false
	}
	return r.EndDate.IsZero() || !now.After(r.EndDate)
}

// ScheduleDates lists the dates the backend generates for a recurring
// transaction: start, then every periodDays days while not after end.
func ScheduleDates(start, end time.Time, periodDays int) ([]time.Time, error) {
	if periodDays < 1 {
		return nil, fmt.Errorf("%w: period must be at least one day, got %d", ErrInvalidPeriod, periodDays)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidDate)
	}
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, periodDays) {
		if len(dates) == maxScheduleDates {
			return nil, fmt.Errorf("%w: schedule has more than %d dates", ErrInvalidPeriod, maxScheduleDates)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
