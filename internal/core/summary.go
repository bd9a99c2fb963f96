package core

import "time"

// Transaction is one entry of the user's history as the backend reports it.
type Transaction struct {
	ID              int64   `json:"id"`
	Amount          float64 `json:"amount"`
	CategoryID      *int64  `json:"category_id,omitempty"`
	CategoryName    *string `json:"category_name,omitempty"`
	TransactionType string  `json:"transaction_type"`
	Note            *string `json:"note,omitempty"`
	Date            string  `json:"date"`
	Vendor          *string `json:"vendor,omitempty"`
}

// SpendingSummary is the backend's summary for a date window.
type SpendingSummary struct {
	TotalSpend         float64             `json:"total_spend"`
	CategoryBreakdown  []CategoryBreakdown `json:"category_breakdown"`
	TransactionHistory []Transaction       `json:"transaction_history"`
}

// Level is the user's experience progress.
type Level struct {
	Level                     int `json:"level"`
	CurrentXP                 int `json:"current_xp"`
	RemainingXPUntilNextLevel int `json:"remaining_xp_until_next_level"`
	TotalXPForNextLevel       int `json:"total_xp_for_next_level"`
}

// Progress is the share of the current level already earned, in [0,1].
func (l Level) Progress() float64 {
	if l.TotalXPForNextLevel <= 0 {
		return 0
	}
	p := float64(l.CurrentXP) / float64(l.TotalXPForNextLevel)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// GoalView pairs a goal with its derived card.
type GoalView struct {
	Goal           Goal           `json:"goal"`
	Classification Classification `json:"classification"`
}

// Dashboard is the display-ready state of one month.
type Dashboard struct {
	Start              string              `json:"start"`
	End                string              `json:"end"`
	TotalSpend         float64             `json:"total_spend"`
	TotalSpendText     string              `json:"total_spend_text"`
	CategoryBreakdown  []CategoryBreakdown `json:"category_breakdown"`
	TransactionHistory []Transaction       `json:"transaction_history"`
	Goals              []GoalView          `json:"goals"`
	Stats              GoalStats           `json:"stats"`
	Level              *Level              `json:"level,omitempty"`
}

// BuildDashboard derives the dashboard for the window [start, end] from raw
// backend data. Goals whose dates cannot be parsed fail the whole build.
func BuildDashboard(summary SpendingSummary, categories []Category, goals []Goal, level *Level, start, end string, now time.Time) (Dashboard, error) {
	d := Dashboard{
		Start:              start,
		End:                end,
		TotalSpend:         summary.TotalSpend,
		TotalSpendText:     FormatAmount(summary.TotalSpend),
		CategoryBreakdown:  ApplyColors(summary.CategoryBreakdown, DefaultPalette),
		TransactionHistory: summary.TransactionHistory,
		Goals:              make([]GoalView, 0, len(goals)),
		Level:              level,
	}
	if d.TransactionHistory == nil {
		d.TransactionHistory = []Transaction{}
	}

	states := make([]GoalState, 0, len(goals))
	for _, g := range ResolveCategoryNames(goals, categories) {
		c, err := Classify(g, now)
		if err != nil {
			return Dashboard{}, err
		}
		d.Goals = append(d.Goals, GoalView{Goal: g, Classification: c})
		states = append(states, c.State)
	}
	d.Stats = Tally(states)
	return d, nil
}
