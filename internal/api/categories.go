package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

// CategoryRequest names and colours a custom category.
type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func categoryPath(id int64) string {
	return "/categories/" + strconv.FormatInt(id, 10)
}

func (c *Client) CreateCategory(ctx context.Context, s session.Session, req CategoryRequest) (core.Category, error) {
	var out core.Category
	if err := c.do(ctx, request{method: http.MethodPost, path: "/categories/custom", body: req, sess: &s}, &out); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, s session.Session, id int64, req CategoryRequest) (core.Category, error) {
	var out core.Category
	if err := c.do(ctx, request{method: http.MethodPut, path: categoryPath(id), body: req, sess: &s}, &out); err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return out, nil
}

// DeleteCategory removes a custom category. A category that still has
// transactions is only deleted when reassignTo names where they move.
func (c *Client) DeleteCategory(ctx context.Context, s session.Session, id int64, reassignTo *int64) error {
	r := request{method: http.MethodDelete, path: categoryPath(id), sess: &s}
	if reassignTo != nil {
		r.query = url.Values{"new_category_id": {strconv.FormatInt(*reassignTo, 10)}}
	}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}
