package google

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// ErrAlreadyExported is returned when the month key is already present in the tab.
var ErrAlreadyExported = errors.New("month already exported")

const (
	kindTotal    = "total"
	kindCategory = "category"
	kindGoal     = "goal"
)

var header = []any{"Month", "Kind", "Name", "Amount", "Percentage", "Detail", "Note"}

// ExportMonth appends the dashboard of year/month to the year's tab and
// returns the updated range. The tab is created with a header row when missing.
func (c *Client) ExportMonth(ctx context.Context, year int, month time.Month, d core.Dashboard) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := c.SheetName(year)
	key := monthKey(year, month)
	logger := c.logger.With(log.NewFields().WithOperation(log.OpExport).ToSlice()...)

	created, err := c.ensureSheet(ctx, sheet)
	if err != nil {
		return "", err
	}
	rows := buildRows(key, d)
	if created {
		rows = append([][]any{header}, rows...)
	} else {
		months, err := c.readCol(ctx, sheet, "A:A")
		if err != nil {
			return "", err
		}
		if slices.Contains(months, key) {
			return "", fmt.Errorf("%w: %s in %s", ErrAlreadyExported, key, sheet)
		}
	}

	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("'%s'!A:G", sheet), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	logger.InfoContext(ctx, "Exported month",
		log.FieldYear, year,
		log.FieldMonth, int(month),
		"rows", len(rows),
		log.FieldSheetsRef, ref)
	return ref, nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, sheet string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return false, nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	c.logger.InfoContext(ctx, "Created sheet", "sheet", sheet)
	return true, nil
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// buildRows flattens a dashboard into one total row, one row per category
// and one row per goal.
func buildRows(key string, d core.Dashboard) [][]any {
	rows := make([][]any, 0, 1+len(d.CategoryBreakdown)+len(d.Goals))
	rows = append(rows, []any{key, kindTotal, "Total", cents(d.TotalSpend), 100, "", d.TotalSpendText})

	for _, b := range d.CategoryBreakdown {
		color := ""
		if b.Color != nil {
			color = *b.Color
		}
		rows = append(rows, []any{key, kindCategory, b.CategoryName, cents(b.TotalAmount), cents(b.Percentage), color, ""})
	}

	for _, g := range d.Goals {
		cl := g.Classification
		rows = append(rows, []any{key, kindGoal, cl.MainText, cents(g.Goal.AmountSpent), "", string(cl.State), cl.SecondaryText})
	}
	return rows
}

// cents rounds v to two decimals so the sheet does not show float noise.
func cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
