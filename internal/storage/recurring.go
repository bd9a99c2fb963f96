package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

const ruleColumns = `id, profile, amount, category_id, transaction_type, note, vendor, every,
	start_date, end_date, last_execution_date`

// AddRecurringRule stores rule and returns it with its id.
func (r *SQLiteRepository) AddRecurringRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (profile, amount, category_id, transaction_type, note, vendor, every,
			start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Profile, rule.Amount, rule.CategoryID, rule.TransactionType, rule.Note, rule.Vendor, string(rule.Every),
		rule.StartDate.UTC().Format(timeLayout), formatOptionalTime(rule.EndDate), r.now().UTC().Format(timeLayout))
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("add recurring rule: %w", err)
	}
	if rule.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringRule{}, fmt.Errorf("add recurring rule: %w", err)
	}
	return rule, nil
}

// ListRecurringRules returns the rules of profile, oldest first.
func (r *SQLiteRepository) ListRecurringRules(ctx context.Context, profile string) ([]core.RecurringRule, error) {
	return r.queryRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE profile = ? ORDER BY id`, profile)
}

// ActiveRecurringRules returns every rule whose window contains now.
func (r *SQLiteRepository) ActiveRecurringRules(ctx context.Context, now time.Time) ([]core.RecurringRule, error) {
	ts := now.UTC().Format(timeLayout)
	return r.queryRules(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`, ts, ts)
}

func (r *SQLiteRepository) DeleteRecurringRule(ctx context.Context, profile string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ? AND profile = ?`, id, profile)
	if err != nil {
		return fmt.Errorf("delete recurring rule %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("recurring rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkRecurringExecuted records that rule id posted its transaction at t.
func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id int64, t time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE recurring_rules SET last_execution_date = ? WHERE id = ?`,
		t.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark recurring rule %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("recurring rule %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringRule{}
	for rows.Next() {
		var (
			rule          core.RecurringRule
			every, start  string
			end, lastExec sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.Profile, &rule.Amount, &rule.CategoryID, &rule.TransactionType,
			&rule.Note, &rule.Vendor, &every, &start, &end, &lastExec); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rule.Every = core.Frequency(every)
		if rule.StartDate, err = time.Parse(timeLayout, start); err != nil {
			return nil, fmt.Errorf("recurring rule %d start: %w", rule.ID, err)
		}
		if rule.EndDate, err = parseOptionalTime(end); err != nil {
			return nil, fmt.Errorf("recurring rule %d end: %w", rule.ID, err)
		}
		if rule.LastExecution, err = parseOptionalTime(lastExec); err != nil {
			return nil, fmt.Errorf("recurring rule %d last execution: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
