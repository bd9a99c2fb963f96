package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	GoalTypeAmount     GoalType = "amount"
	GoalTypePercentage GoalType = "percentage"
)

// DeletedCategoryName is shown when a goal points at a category that no
// longer exists, or at none at all.
const DeletedCategoryName = "Deleted Category"

type (
	GoalType string

	// Deal is a community price listing carrying the caller's tri-state vote.
	Deal struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Date        string  `json:"date"`
		Address     string  `json:"address"`
		Longitude   float64 `json:"longitude"`
		Latitude    float64 `json:"latitude"`
		Upvotes     int     `json:"upvotes"`
		Downvotes   int     `json:"downvotes"`
		UserVote    Vote    `json:"user_vote"`
	}

	// Goal is a spending limit over a category and period.
	Goal struct {
		ID           int64    `json:"id"`
		CategoryID   *int64   `json:"category_id"`
		GoalType     GoalType `json:"goal_type"`
		Limit        float64  `json:"limit"`
		StartDate    string   `json:"start_date"`
		EndDate      string   `json:"end_date"`
		Period       int      `json:"period"`
		AmountSpent  float64  `json:"amount"`
		OnTrack      bool     `json:"on_track"`
		TimeLeftDays int      `json:"time_left"`

		// CategoryName is resolved client side; see ResolveCategoryNames.
		CategoryName string `json:"category_name,omitempty"`
	}

	Category struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// CategoryBreakdown is one slice of the spending summary.
	CategoryBreakdown struct {
		CategoryName string  `json:"category_name"`
		TotalAmount  float64 `json:"total_amount"`
		Percentage   float64 `json:"percentage"`
		Color        *string `json:"color"`
	}

	GoalStats struct {
		Completed  int `json:"completed"`
		InProgress int `json:"in_progress"`
		Failed     int `json:"incompleted"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidDirection = errors.New("invalid vote direction")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidGoalType  = errors.New("invalid goal type")
	ErrInvalidLimit     = errors.New("invalid goal limit")
	ErrInvalidPeriod    = errors.New("invalid goal period")
)

func (t GoalType) Valid() bool {
	return t == GoalTypeAmount || t == GoalTypePercentage
}

// Validate checks the invariants a goal must hold before it is sent to the
// backend.
func (g Goal) Validate() error {
	if !g.GoalType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGoalType, g.GoalType)
	}
	if g.Limit < 0 {
		return fmt.Errorf("%w: must not be negative", ErrInvalidLimit)
	}
	if g.GoalType == GoalTypePercentage && g.Limit > 100 {
		return fmt.Errorf("%w: percentage goals cannot exceed 100", ErrInvalidLimit)
	}
	switch g.Period {
	case 7, 30, 31:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, g.Period)
	}
	return nil
}

// ResolveCategoryNames returns a copy of goals with CategoryName filled from
// categories. Missing or unknown categories resolve to DeletedCategoryName.
func ResolveCategoryNames(goals []Goal, categories []Category) []Goal {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	out := make([]Goal, len(goals))
	for i, g := range goals {
		g.CategoryName = DeletedCategoryName
		if g.CategoryID != nil {
			if name, ok := names[*g.CategoryID]; ok {
				g.CategoryName = name
			}
		}
		out[i] = g
	}
	return out
}

// UnmarshalJSON accepts the spent amount as either "amount" or "amount_spent".
func (g *Goal) UnmarshalJSON(data []byte) error {
	type plain Goal
	aux := struct {
		*plain
		Spent *float64 `json:"amount_spent"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Spent != nil {
		g.AmountSpent = *aux.Spent
	}
	return nil
}
