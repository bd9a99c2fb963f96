package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

// Location narrows a deal listing to a radius around a point.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Distance  float64 `json:"distance"`
}

// DealFilter is the body of the deal listing call. Zero fields are omitted.
type DealFilter struct {
	UserID   *int64    `json:"user_id,omitempty"`
	Location *Location `json:"location,omitempty"`
}

type CreateDealRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Date        string  `json:"date"`
	Address     string  `json:"address"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
}

func dealPath(parts ...string) string {
	p := "/deals"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Deals lists deals matching filter, in backend order.
func (c *Client) Deals(ctx context.Context, s session.Session, filter DealFilter) ([]core.Deal, error) {
	var out []core.Deal
	// The listing is a POST but has no side effects.
	if err := c.do(ctx, request{method: http.MethodPost, path: dealPath("list"), body: filter, sess: &s}, &out); err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	if out == nil {
		out = []core.Deal{}
	}
	return out, nil
}

func (c *Client) Deal(ctx context.Context, s session.Session, id int64) (core.Deal, error) {
	var out core.Deal
	if err := c.do(ctx, request{method: http.MethodGet, path: dealPath(strconv.FormatInt(id, 10)), sess: &s}, &out); err != nil {
		return core.Deal{}, fmt.Errorf("get deal %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) CreateDeal(ctx context.Context, s session.Session, req CreateDealRequest) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: dealPath() + "/", body: req, sess: &s}, nil); err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	return nil
}

// UpdateDeal replaces every field of one of the user's deals.
func (c *Client) UpdateDeal(ctx context.Context, s session.Session, id int64, req CreateDealRequest) error {
	if err := c.do(ctx, request{method: http.MethodPut, path: dealPath(strconv.FormatInt(id, 10)), body: req, sess: &s}, nil); err != nil {
		return fmt.Errorf("update deal %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteDeal(ctx context.Context, s session.Session, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: dealPath(strconv.FormatInt(id, 10)), sess: &s}, nil); err != nil {
		return fmt.Errorf("delete deal %d: %w", id, err)
	}
	return nil
}

func (c *Client) Upvote(ctx context.Context, s session.Session, id int64) error {
	return c.vote(ctx, s, core.ActionUpvote, id)
}

func (c *Client) Downvote(ctx context.Context, s session.Session, id int64) error {
	return c.vote(ctx, s, core.ActionDownvote, id)
}

func (c *Client) CancelVote(ctx context.Context, s session.Session, id int64) error {
	return c.vote(ctx, s, core.ActionCancelVote, id)
}

// Vote performs the backend call named by action.
func (c *Client) Vote(ctx context.Context, s session.Session, action core.VoteAction, id int64) error {
	switch action {
	case core.ActionUpvote, core.ActionDownvote, core.ActionCancelVote:
		return c.vote(ctx, s, action, id)
	}
	return fmt.Errorf("unknown vote action %q", action)
}

func (c *Client) vote(ctx context.Context, s session.Session, action core.VoteAction, id int64) error {
	path := dealPath(string(action), strconv.FormatInt(id, 10))
	if err := c.do(ctx, request{method: http.MethodPost, path: path, sess: &s}, nil); err != nil {
		return fmt.Errorf("%s deal %d: %w", action, id, err)
	}
	return nil
}
