package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

// backendTimeLayout is how the backend expects query date-times.
const backendTimeLayout = "2006-01-02T15:04:05"

type AddTransactionRequest struct {
	Amount          float64 `json:"amount"`
	CategoryID      int64   `json:"category_id"`
	TransactionType string  `json:"transaction_type"`
	Note            string  `json:"note"`
	Date            string  `json:"date"`
	Vendor          *string `json:"vendor,omitempty"`
}

// UpdateTransactionRequest changes the fields that are set and leaves the
// rest alone.
type UpdateTransactionRequest struct {
	Amount          *float64 `json:"amount,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	TransactionType *string  `json:"transaction_type,omitempty"`
	Note            *string  `json:"note,omitempty"`
	Date            *string  `json:"date,omitempty"`
	Vendor          *string  `json:"vendor,omitempty"`
}

// Empty reports whether the request would change nothing.
func (r UpdateTransactionRequest) Empty() bool {
	return r == UpdateTransactionRequest{}
}

func transactionPath(id int64) string {
	return "/transactions/" + strconv.FormatInt(id, 10)
}

// Categories lists the categories visible to the session's user.
func (c *Client) Categories(ctx context.Context, s session.Session) ([]core.Category, error) {
	var out []core.Category
	if err := c.do(ctx, request{method: http.MethodGet, path: "/categories/", sess: &s}, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// SpendingSummary fetches the spending summary for [start, end].
func (c *Client) SpendingSummary(ctx context.Context, s session.Session, start, end time.Time) (core.SpendingSummary, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(backendTimeLayout))
	q.Set("end_date", end.Format(backendTimeLayout))

	var out core.SpendingSummary
	if err := c.do(ctx, request{method: http.MethodGet, path: "/statistics/summary_spend", query: q, sess: &s}, &out); err != nil {
		return core.SpendingSummary{}, fmt.Errorf("spending summary: %w", err)
	}
	return out, nil
}

// Transactions pages through the user's transactions.
func (c *Client) Transactions(ctx context.Context, s session.Session, skip, limit int) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var out []core.Transaction
	if err := c.do(ctx, request{method: http.MethodGet, path: "/transactions/", query: q, sess: &s}, &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (c *Client) AddTransaction(ctx context.Context, s session.Session, req AddTransactionRequest) error {
	if req.TransactionType == "" {
		req.TransactionType = "expense"
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/transactions/", body: req, sess: &s}, nil); err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}
	return nil
}

func (c *Client) UpdateTransaction(ctx context.Context, s session.Session, id int64, req UpdateTransactionRequest) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, request{method: http.MethodPut, path: transactionPath(id), body: req, sess: &s}, &out); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, s session.Session, id int64) error {
	if err := c.do(ctx, request{method: http.MethodDelete, path: transactionPath(id), sess: &s}, nil); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

// Level fetches the user's experience level.
func (c *Client) Level(ctx context.Context, s session.Session) (core.Level, error) {
	var out core.Level
	if err := c.do(ctx, request{method: http.MethodGet, path: "/user/level", sess: &s}, &out); err != nil {
		return core.Level{}, fmt.Errorf("level: %w", err)
	}
	return out, nil
}
