package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/charts"
	"expensetracker/internal/core"
)

type monthFlags struct {
	year  int
	month int
}

func (f *monthFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "year to show (default current)")
	cmd.Flags().IntVar(&f.month, "month", 0, "month to show, 1-12 (default current)")
}

func (f *monthFlags) resolve() (int, time.Month, error) {
	return yearMonth(f.year, f.month, time.Now())
}

func (a *app) loadDashboard(cmd *cobra.Command, f *monthFlags) (core.Dashboard, error) {
	year, month, err := f.resolve()
	if err != nil {
		return core.Dashboard{}, err
	}
	sess, err := a.session(cmd.Context())
	if err != nil {
		return core.Dashboard{}, err
	}
	return a.dashboards().Load(cmd.Context(), sess, year, month)
}

func dashboardCmd(a *app) *cobra.Command {
	var (
		months monthFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the monthly spending dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDashboard(cmd, &months)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}
			return printDashboard(cmd.OutOrStdout(), d)
		},
	}
	months.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the dashboard as JSON")
	return cmd
}

func chartCmd(a *app) *cobra.Command {
	var (
		months monthFlags
		out    string
		goals  bool
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the month's category breakdown as a PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			d, err := a.loadDashboard(cmd, &months)
			if err != nil {
				return err
			}

			var png []byte
			if goals {
				png, err = charts.RenderGoalStats("Goals", d.Stats)
			} else {
				png, err = charts.RenderBreakdown(chartTitle(d), d.CategoryBreakdown)
			}
			if errors.Is(err, charts.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("Nothing to chart for this month"))
				return nil
			}
			if err != nil {
				return fmt.Errorf("render chart: %w", err)
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Chart written to "+out))
			return nil
		},
	}
	months.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG file to write")
	cmd.Flags().BoolVar(&goals, "goals", false, "chart goal outcomes instead of categories")
	return cmd
}

func chartTitle(d core.Dashboard) string {
	if len(d.Start) < 7 {
		return "Spending"
	}
	return "Spending " + d.Start[:7]
}
