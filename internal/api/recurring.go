package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"expensetracker/internal/session"
)

const recurringPath = "/transactions/recurring/"

// RecurringTransaction is a schedule the backend expands into one
// transaction every Period days between StartDate and EndDate.
type RecurringTransaction struct {
	ID        int64  `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Note      string `json:"note"`
	Period    int    `json:"period"`
}

// RecurringTransactionRequest creates or replaces a schedule. Replacing
// regenerates every transaction of the schedule.
type RecurringTransactionRequest struct {
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Note            string  `json:"note"`
	Period          int     `json:"period"`
	Amount          float64 `json:"amount"`
	CategoryID      int64   `json:"category_id"`
	TransactionType string  `json:"transaction_type"`
	Vendor          string  `json:"vendor"`
}

func recurringQuery(id int64) url.Values {
	q := url.Values{}
	q.Set("recurring_id", strconv.FormatInt(id, 10))
	return q
}

func (c *Client) RecurringTransactions(ctx context.Context, s session.Session) ([]RecurringTransaction, error) {
	var out []RecurringTransaction
	if err := c.do(ctx, request{method: http.MethodGet, path: recurringPath, sess: &s}, &out); err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	if out == nil {
		out = []RecurringTransaction{}
	}
	return out, nil
}

func (c *Client) CreateRecurringTransaction(ctx context.Context, s session.Session, req RecurringTransactionRequest) (RecurringTransaction, error) {
	var out RecurringTransaction
	if err := c.do(ctx, request{method: http.MethodPost, path: recurringPath, body: req, sess: &s}, &out); err != nil {
		return RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}
	return out, nil
}

// UpdateRecurringTransaction replaces schedule id. The id travels in the
// query string.
func (c *Client) UpdateRecurringTransaction(ctx context.Context, s session.Session, id int64, req RecurringTransactionRequest) (RecurringTransaction, error) {
	var out RecurringTransaction
	r := request{method: http.MethodPut, path: recurringPath, query: recurringQuery(id), body: req, sess: &s}
	if err := c.do(ctx, r, &out); err != nil {
		return RecurringTransaction{}, fmt.Errorf("update recurring transaction %d: %w", id, err)
	}
	return out, nil
}

// DeleteRecurringTransaction removes schedule id with every transaction it
// generated.
func (c *Client) DeleteRecurringTransaction(ctx context.Context, s session.Session, id int64) error {
	r := request{method: http.MethodDelete, path: recurringPath, query: recurringQuery(id), sess: &s}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("delete recurring transaction %d: %w", id, err)
	}
	return nil
}
