package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// RecurringStore holds the local recurring rules.
type RecurringStore interface {
	ActiveRecurringRules(ctx context.Context, now time.Time) ([]core.RecurringRule, error)
	MarkRecurringExecuted(ctx context.Context, id int64, t time.Time) error
}

// TransactionPoster records transactions on the backend.
type TransactionPoster interface {
	AddTransaction(ctx context.Context, s session.Session, req api.AddTransactionRequest) error
}

// RecurringProcessor posts a transaction for every local rule that is due.
type RecurringProcessor struct {
	rules    RecurringStore
	sessions SessionSource
	backend  TransactionPoster
	logger   *log.Logger
}

func NewRecurringProcessor(rules RecurringStore, sessions SessionSource, backend TransactionPoster, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringProcessor{
		rules:    rules,
		sessions: sessions,
		backend:  backend,
		logger:   logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue posts the due rules as of now and returns how many were posted.
// A failing rule is logged and skipped; it is retried on the next run. Rules
// of a profile that is not logged in are skipped too.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	rules, err := p.rules.ActiveRecurringRules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load active recurring rules: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing recurring rules",
		"total_active", len(rules),
		"processing_date", now.Format("2006-01-02"))

	sessions := map[string]session.Session{}
	skipped := map[string]bool{}
	posted := 0
	for _, rule := range rules {
		if ctx.Err() != nil {
			return posted, ctx.Err()
		}
		if skipped[rule.Profile] {
			continue
		}
		checker, err := GetDuenessChecker(rule.Every)
		if err != nil {
			p.logger.ErrorContext(ctx, "Unknown frequency", log.FieldRuleID, rule.ID, log.FieldError, err)
			continue
		}
		if !checker.IsDue(rule.LastExecution, now, rule.StartDate) {
			continue
		}

		sess, ok := sessions[rule.Profile]
		if !ok {
			sess, err = p.sessions.Current(ctx, rule.Profile)
			if err != nil {
				level := p.logger.ErrorContext
				if errors.Is(err, ErrNotLoggedIn) || errors.Is(err, ErrSessionExpired) {
					level = p.logger.WarnContext
				}
				level(ctx, "Skipping rules of profile without a session", "profile", rule.Profile, log.FieldError, err)
				skipped[rule.Profile] = true
				continue
			}
			sessions[rule.Profile] = sess
		}

		if err := p.backend.AddTransaction(ctx, sess, ruleTransaction(rule, now)); err != nil {
			p.logger.ErrorContext(ctx, "Failed to post recurring transaction",
				log.FieldRuleID, rule.ID, log.FieldError, err)
			continue
		}
		if err := p.rules.MarkRecurringExecuted(ctx, rule.ID, now); err != nil {
			// The transaction exists; the next run may post it again.
			p.logger.ErrorContext(ctx, "Failed to update last execution date",
				log.FieldRuleID, rule.ID, log.FieldError, err)
		}
		posted++
		p.logger.InfoContext(ctx, "Posted recurring transaction",
			log.FieldRuleID, rule.ID,
			log.FieldUserID, sess.UserID,
			"amount", rule.Amount,
			"every", rule.Every)
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"posted", posted,
		"total_checked", len(rules))
	return posted, nil
}

func ruleTransaction(rule core.RecurringRule, now time.Time) api.AddTransactionRequest {
	req := api.AddTransactionRequest{
		Amount:          rule.Amount,
		CategoryID:      rule.CategoryID,
		TransactionType: rule.TransactionType,
		Note:            rule.Note,
		Date:            now.Format("2006-01-02"),
	}
	if rule.Vendor != "" {
		v := rule.Vendor
		req.Vendor = &v
	}
	return req
}
