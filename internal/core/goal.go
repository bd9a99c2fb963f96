package core

import (
	"fmt"
	"time"
)

// Theme colours used by goal cards.
const (
	ColorNeutralOrange = "#CC8658"
	ColorGreen         = "#69A42D"
	ColorRed           = "#D5030A"
)

const (
	StateInProgress GoalState = "in_progress"
	StateCompleted  GoalState = "completed"
	StateFailed     GoalState = "failed"
)

const (
	IconCircle = "circle"
	IconCheck  = "check"
	IconClose  = "close"
)

const (
	weeklyRewardXP  = 5
	monthlyRewardXP = 20
)

type GoalState string

// Classification is everything a goal card shows, derived from a Goal and
// the current time.
type Classification struct {
	State          GoalState `json:"state"`
	Icon           string    `json:"icon"`
	IconColor      string    `json:"icon_color"`
	MainText       string    `json:"main_text"`
	SecondaryText  string    `json:"secondary_text"`
	SecondaryColor string    `json:"secondary_color"`
	RewardXP       int       `json:"reward_xp"`
	RewardText     string    `json:"reward_text"`
	DateRange      string    `json:"date_range"`
	TimeLeftText   string    `json:"time_left_text"`
}

// PeriodLabel is "week" for seven-day goals and "month" for everything else.
func PeriodLabel(period int) string {
	if period == 7 {
		return "week"
	}
	return "month"
}

// RewardXP is the experience shown next to a goal. Display only.
func RewardXP(period int) int {
	if period == 7 {
		return weeklyRewardXP
	}
	return monthlyRewardXP
}

// Classify derives the goal card for g as seen at now. A goal whose start or
// end date cannot be parsed yields the parse error.
//
// Before the end date a goal is in progress regardless of OnTrack. After it
// the goal is completed when it stayed on track and failed otherwise.
func Classify(g Goal, now time.Time) (Classification, error) {
	if _, err := ParseGoalTime(g.StartDate); err != nil {
		return Classification{}, fmt.Errorf("goal %d start date: %w", g.ID, err)
	}
	end, err := ParseGoalTime(g.EndDate)
	if err != nil {
		return Classification{}, fmt.Errorf("goal %d end date: %w", g.ID, err)
	}

	c := Classification{
		MainText:      MainText(g),
		SecondaryText: SecondaryText(g),
		RewardXP:      RewardXP(g.Period),
		DateRange:     FormatDateRange(g.StartDate, g.EndDate),
		TimeLeftText:  FormatTimeLeft(g.TimeLeftDays),
	}
	c.RewardText = fmt.Sprintf("+%d xp", c.RewardXP)

	switch {
	case now.Before(end):
		c.State = StateInProgress
		c.Icon = IconCircle
		c.IconColor = ColorNeutralOrange
		c.SecondaryText += " so far"
		c.SecondaryColor = ColorRed
		if g.OnTrack {
			c.SecondaryColor = ColorGreen
		}
	case g.OnTrack && end.Before(now):
		c.State = StateCompleted
		c.Icon = IconCheck
		c.IconColor = ColorGreen
		c.SecondaryColor = ColorGreen
	default:
		c.State = StateFailed
		c.Icon = IconClose
		c.IconColor = ColorRed
		c.SecondaryColor = ColorRed
	}
	return c, nil
}

// MainText states what the goal asks for.
func MainText(g Goal) string {
	category := g.CategoryName
	if category == "" {
		category = DeletedCategoryName
	}
	period := PeriodLabel(g.Period)
	if g.GoalType == GoalTypePercentage {
		return fmt.Sprintf("Spend %s%% less than last %s on %s", FormatCurrency(g.Limit), period, category)
	}
	return fmt.Sprintf("Spend less than %s on %s", FormatAmount(g.Limit), category)
}

// SecondaryText states the progress so far, without the in-progress suffix.
func SecondaryText(g Goal) string {
	period := PeriodLabel(g.Period)
	if g.GoalType == GoalTypePercentage {
		return fmt.Sprintf("%s%% less spent than last set %s", FormatCurrency(g.AmountSpent), period)
	}
	return fmt.Sprintf("%s amount spent in set %s", FormatAmount(g.AmountSpent), period)
}

// Tally counts classifications by state.
func Tally(states []GoalState) GoalStats {
	var s GoalStats
	for _, st := range states {
		switch st {
		case StateCompleted:
			s.Completed++
		case StateInProgress:
			s.InProgress++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}
