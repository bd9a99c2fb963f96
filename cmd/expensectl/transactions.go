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
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and record transactions",
	}
	cmd.AddCommand(transactionsListCmd(a))
	cmd.AddCommand(transactionsAddCmd(a))
	cmd.AddCommand(transactionsUpdateCmd(a))
	cmd.AddCommand(transactionsDeleteCmd(a))
	cmd.AddCommand(recurringCmd(a))
	cmd.AddCommand(scheduleCmd(a))
	return cmd
}

func transactionsListCmd(a *app) *cobra.Command {
	var (
		skip, limit int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if skip < 0 || limit < 1 || limit > 500 {
				return fmt.Errorf("invalid paging: --skip %d --limit %d", skip, limit)
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := a.backend.Transactions(cmd.Context(), sess, skip, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), txs)
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "transactions to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "transactions to show, at most 500")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print transactions as JSON")
	return cmd
}

type transactionFlags struct {
	amount   float64
	category int64
	kind     string
	note     string
	vendor   string
	date     string
}

func (f transactionFlags) request(now time.Time) (api.AddTransactionRequest, error) {
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
	date := f.date
	if date == "" {
		date = now.Format("2006-01-02")
	} else if _, err := core.ParseGoalTime(date); err != nil {
		errs = append(errs, fmt.Errorf("--date: %w", err))
	}
	if len(errs) > 0 {
		return api.AddTransactionRequest{}, errors.Join(errs...)
	}

	req := api.AddTransactionRequest{
		Amount:          f.amount,
		CategoryID:      f.category,
		TransactionType: kind,
		Note:            f.note,
		Date:            date,
	}
	if f.vendor != "" {
		v := f.vendor
		req.Vendor = &v
	}
	return req, nil
}

func transactionsAddCmd(a *app) *cobra.Command {
	var flags transactionFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.backend.AddTransaction(cmd.Context(), sess, req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("Recorded %s %s on %s", req.TransactionType, core.FormatAmount(req.Amount), req.Date)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&flags.amount, "amount", 0, "amount in dollars")
	cmd.Flags().Int64Var(&flags.category, "category", 0, "category id")
	cmd.Flags().StringVar(&flags.kind, "type", "expense", "expense or income")
	cmd.Flags().StringVar(&flags.note, "note", "", "free text note")
	cmd.Flags().StringVar(&flags.vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&flags.date, "date", "", "date YYYY-MM-DD (default today)")
	return cmd
}

// update builds a partial update from the flags the user actually set.
func (f transactionFlags) update(changed func(string) bool) (api.UpdateTransactionRequest, error) {
	var (
		req  api.UpdateTransactionRequest
		errs []error
	)
	if changed("amount") {
		if f.amount <= 0 {
			errs = append(errs, fmt.Errorf("--amount must be positive, got %v", f.amount))
		}
		req.Amount = &f.amount
	}
	if changed("category") {
		if f.category <= 0 {
			errs = append(errs, fmt.Errorf("invalid --category %d", f.category))
		}
		req.CategoryID = &f.category
	}
	if changed("type") {
		kind := strings.ToLower(f.kind)
		if kind != "expense" && kind != "income" {
			errs = append(errs, fmt.Errorf("--type must be expense or income, got %q", f.kind))
		}
		req.TransactionType = &kind
	}
	if changed("note") {
		req.Note = &f.note
	}
	if changed("vendor") {
		req.Vendor = &f.vendor
	}
	if changed("date") {
		if _, err := core.ParseGoalTime(f.date); err != nil {
			errs = append(errs, fmt.Errorf("--date: %w", err))
		}
		req.Date = &f.date
	}
	if len(errs) > 0 {
		return api.UpdateTransactionRequest{}, errors.Join(errs...)
	}
	if req.Empty() {
		return req, errors.New("nothing to update, set at least one flag")
	}
	return req, nil
}

func transactionsUpdateCmd(a *app) *cobra.Command {
	var flags transactionFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := flags.update(cmd.Flags().Changed)
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.backend.UpdateTransaction(cmd.Context(), sess, id, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Updated transaction %d", id)))
			return printTransactions(cmd.OutOrStdout(), []core.Transaction{tx})
		},
	}
	cmd.Flags().Float64Var(&flags.amount, "amount", 0, "amount in dollars")
	cmd.Flags().Int64Var(&flags.category, "category", 0, "category id")
	cmd.Flags().StringVar(&flags.kind, "type", "", "expense or income")
	cmd.Flags().StringVar(&flags.note, "note", "", "free text note")
	cmd.Flags().StringVar(&flags.vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&flags.date, "date", "", "date YYYY-MM-DD")
	return cmd
}

func transactionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
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
			if err := a.backend.DeleteTransaction(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No transactions"))
		return nil
	}
	tw := newTable(w)
	for _, t := range txs {
		category, vendor, note := "", "", ""
		if t.CategoryName != nil {
			category = *t.CategoryName
		}
		if t.Vendor != nil {
			vendor = *t.Vendor
		}
		if t.Note != nil {
			note = truncate(*t.Note, 30)
		}
		amount := core.FormatAmount(t.Amount)
		if t.TransactionType == "income" {
			amount = successStyle.Render("+" + amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", core.TruncateToDate(t.Date), amount, category, vendor, subtleStyle.Render(note))
	}
	return tw.Flush()
}
