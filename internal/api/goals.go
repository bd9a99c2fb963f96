package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

type CreateGoalRequest struct {
	CategoryID *int64        `json:"category_id"`
	GoalType   core.GoalType `json:"goal_type"`
	Limit      float64       `json:"limit"`
	StartDate  string        `json:"start_date"`
	Period     int           `json:"period"`
}

type UpdateGoalRequest struct {
	Limit     float64       `json:"limit"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	GoalType  core.GoalType `json:"goal_type"`
}

// GoalsResponse is the goal list with the backend's own tallies.
type GoalsResponse struct {
	Goals []core.Goal     `json:"goals"`
	Stats *core.GoalStats `json:"stats,omitempty"`
}

// UnmarshalJSON accepts both the wrapped form and a bare goal array.
func (r *GoalsResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		r.Stats = nil
		return json.Unmarshal(trimmed, &r.Goals)
	}
	type wrapped GoalsResponse
	var w wrapped
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	*r = GoalsResponse(w)
	return nil
}

func goalPath(id int64) string {
	return "/goals/" + strconv.FormatInt(id, 10)
}

// Goals lists the goals of the session's user.
func (c *Client) Goals(ctx context.Context, s session.Session) (GoalsResponse, error) {
	var out GoalsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/goals/", sess: &s}, &out); err != nil {
		return GoalsResponse{}, fmt.Errorf("list goals: %w", err)
	}
	if out.Goals == nil {
		out.Goals = []core.Goal{}
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, s session.Session, req CreateGoalRequest) (core.Goal, error) {
	var out core.Goal
	if err := c.do(ctx, request{method: http.MethodPost, path: "/goals/", body: req, sess: &s}, &out); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, s session.Session, id int64, req UpdateGoalRequest) (core.Goal, error) {
	var out core.Goal
	if err := c.do(ctx, request{method: http.MethodPut, path: goalPath(id), body: req, sess: &s}, &out); err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) DeleteGoal(ctx context.Context, s session.Session, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: goalPath(id), sess: &s}, nil); err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return nil
}
