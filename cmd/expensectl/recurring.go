package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

// recurringCmd manages the schedules the backend expands into transactions.
func recurringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring transactions kept by the backend",
	}
	cmd.AddCommand(recurringListCmd(a))
	cmd.AddCommand(recurringSaveCmd(a, false))
	cmd.AddCommand(recurringSaveCmd(a, true))
	cmd.AddCommand(recurringDeleteCmd(a))
	return cmd
}

func recurringListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.backend.RecurringTransactions(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			return printRecurring(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print recurring transactions as JSON")
	return cmd
}

type recurringFlags struct {
	transactionFlags
	start  string
	end    string
	period int
}

// request validates the flags and returns the request with the dates it
// will generate.
func (f recurringFlags) request() (api.RecurringTransactionRequest, []time.Time, error) {
	var errs []error
	if f.amount <= 0 {
		errs = append(errs, fmt.Errorf("--amount must be positive, got %v", f.amount))
	}
	if f.category <= 0 {
		errs = append(errs, errors.New("--category is required"))
	}
	kind := strings.ToLower(f.kind)
	if kind != "expense" && kind != "income" {
		errs = append(errs, fmt.Errorf("--type must be expense or income, got %q", f.kind))
	}
	start, err := core.ParseGoalTime(f.start)
	if err != nil {
		errs = append(errs, fmt.Errorf("--start: %w", err))
	}
	end, err := core.ParseGoalTime(f.end)
	if err != nil {
		errs = append(errs, fmt.Errorf("--end: %w", err))
	}
	if len(errs) > 0 {
		return api.RecurringTransactionRequest{}, nil, errors.Join(errs...)
	}
	dates, err := core.ScheduleDates(start, end, f.period)
	if err != nil {
		return api.RecurringTransactionRequest{}, nil, err
	}
	return api.RecurringTransactionRequest{
		StartDate:       start.Format("2006-01-02"),
		EndDate:         end.Format("2006-01-02"),
		Note:            f.note,
		Period:          f.period,
		Amount:          f.amount,
		CategoryID:      f.category,
		TransactionType: kind,
		Vendor:          f.vendor,
	}, dates, nil
}

// recurringSaveCmd builds "add", or "update <id>" when replace is set.
func recurringSaveCmd(a *app, replace bool) *cobra.Command {
	var (
		flags  recurringFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if replace {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			}
			req, dates, err := flags.request()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				for _, d := range dates {
					fmt.Fprintln(out, d.Format("2006-01-02"))
				}
				return nil
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			var saved api.RecurringTransaction
			if replace {
				saved, err = a.backend.UpdateRecurringTransaction(cmd.Context(), sess, id, req)
			} else {
				saved, err = a.backend.CreateRecurringTransaction(cmd.Context(), sess, req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Saved recurring transaction %d: %s every %d days, %d transactions",
				saved.ID, core.FormatAmount(req.Amount), req.Period, len(dates))))
			return nil
		},
	}
	if replace {
		cmd.Use = "update <id>"
		cmd.Short = "Replace a recurring transaction and regenerate its transactions"
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.Flags().Float64Var(&flags.amount, "amount", 0, "amount in dollars")
	cmd.Flags().Int64Var(&flags.category, "category", 0, "category id")
	cmd.Flags().StringVar(&flags.kind, "type", "expense", "expense or income")
	cmd.Flags().StringVar(&flags.note, "note", "", "free text note")
	cmd.Flags().StringVar(&flags.vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&flags.start, "start", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.end, "end", "", "last date YYYY-MM-DD")
	cmd.Flags().IntVar(&flags.period, "every", 30, "days between transactions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the dates without saving")
	return cmd
}

func recurringDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring transaction and the transactions it created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.backend.DeleteRecurringTransaction(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted recurring transaction %d", id)))
			return nil
		},
	}
}

// scheduleCmd manages open ended rules kept locally and posted by
// recurring-worker or "schedule run".
func scheduleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage local recurring rules of --profile",
	}
	cmd.AddCommand(scheduleListCmd(a))
	cmd.AddCommand(scheduleAddCmd(a))
	cmd.AddCommand(scheduleDeleteCmd(a))
	cmd.AddCommand(scheduleRunCmd(a))
	return cmd
}

func scheduleListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local recurring rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := a.repo.ListRecurringRules(cmd.Context(), a.profile)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rules)
			}
			return printRules(cmd.OutOrStdout(), rules)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rules as JSON")
	return cmd
}

type ruleFlags struct {
	transactionFlags
	every string
	start string
	end   string
}

func (f ruleFlags) rule(profile string, now time.Time) (core.RecurringRule, error) {
	every, err := core.ParseFrequency(f.every)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("--every: %w", err)
	}
	today := now.UTC()
	rule := core.RecurringRule{
		Profile:         profile,
		Amount:          f.amount,
		CategoryID:      f.category,
		TransactionType: strings.ToLower(f.kind),
		Note:            f.note,
		Vendor:          f.vendor,
		Every:           every,
		StartDate:       time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
	}
	if f.start != "" {
		if rule.StartDate, err = core.ParseGoalTime(f.start); err != nil {
			return core.RecurringRule{}, fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if rule.EndDate, err = core.ParseGoalTime(f.end); err != nil {
			return core.RecurringRule{}, fmt.Errorf("--end: %w", err)
		}
	}
	return rule, rule.Validate()
}

func scheduleAddCmd(a *app) *cobra.Command {
	var flags ruleFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a local recurring rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule, err := flags.rule(a.profile, time.Now())
			if err != nil {
				return err
			}
			if rule, err = a.repo.AddRecurringRule(cmd.Context(), rule); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Added rule %d: %s %s %s",
				rule.ID, rule.Every, rule.TransactionType, core.FormatAmount(rule.Amount))))
			return nil
		},
	}
	cmd.Flags().Float64Var(&flags.amount, "amount", 0, "amount in dollars")
	cmd.Flags().Int64Var(&flags.category, "category", 0, "category id")
	cmd.Flags().StringVar(&flags.kind, "type", "expense", "expense or income")
	cmd.Flags().StringVar(&flags.note, "note", "", "free text note")
	cmd.Flags().StringVar(&flags.vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&flags.every, "every", "monthly", "daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&flags.start, "start", "", "first date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&flags.end, "end", "", "last date YYYY-MM-DD (default never)")
	return cmd
}

func scheduleDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a local recurring rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.repo.DeleteRecurringRule(cmd.Context(), a.profile, id); err != nil {
				return fmt.Errorf("delete rule %d: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}
}

func scheduleRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Post every local rule that is due now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := services.NewRecurringProcessor(a.repo, a.sessions, a.backend, a.logger)
			n, err := p.ProcessDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Posted %d recurring transactions", n)))
			return nil
		},
	}
}

func printRecurring(w io.Writer, list []api.RecurringTransaction) error {
	if len(list) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No recurring transactions"))
		return nil
	}
	tw := newTable(w)
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s to %s\tevery %d days\t%s\n",
			r.ID, core.TruncateToDate(r.StartDate), core.TruncateToDate(r.EndDate), r.Period, subtleStyle.Render(truncate(r.Note, 30)))
	}
	return tw.Flush()
}

func printRules(w io.Writer, rules []core.RecurringRule) error {
	if len(rules) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No recurring rules"))
		return nil
	}
	tw := newTable(w)
	for _, r := range rules {
		end, last := "never", "-"
		if !r.EndDate.IsZero() {
			end = r.EndDate.Format("2006-01-02")
		}
		if !r.LastExecution.IsZero() {
			last = r.LastExecution.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\tfrom %s until %s\tlast %s\n",
			r.ID, r.Every, r.TransactionType, core.FormatAmount(r.Amount), r.StartDate.Format("2006-01-02"), end, last)
	}
	return tw.Flush()
}
