package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

func goalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage spending goals",
	}
	cmd.AddCommand(goalsListCmd(a))
	cmd.AddCommand(goalsCreateCmd(a))
	cmd.AddCommand(goalsDeleteCmd(a))
	return cmd
}

func goalsListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals with their current state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.goals().List(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			return printGoalList(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print goals as JSON")
	return cmd
}

type goalFlags struct {
	goalType string
	limit    float64
	period   int
	start    string
	category int64
}

// request turns the flags into a create request. Validation of the values
// themselves is left to the goal service.
func (f goalFlags) request(now time.Time) (api.CreateGoalRequest, error) {
	req := api.CreateGoalRequest{
		GoalType:  core.GoalType(strings.ToLower(f.goalType)),
		Limit:     f.limit,
		Period:    f.period,
		StartDate: f.start,
	}
	if req.StartDate == "" {
		req.StartDate = now.Format("2006-01-02")
	}
	if f.category < 0 {
		return req, fmt.Errorf("invalid --category %d", f.category)
	}
	if f.category > 0 {
		id := f.category
		req.CategoryID = &id
	}
	return req, nil
}

func goalsCreateCmd(a *app) *cobra.Command {
	var flags goalFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a spending goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			g, err := a.goals().Create(cmd.Context(), sess, req)
			var verrs services.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("  "+e.Error()))
				}
				return errors.New("goal rejected")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Created goal %d", g.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.goalType, "type", string(core.GoalTypeAmount), "goal type: amount or percentage")
	cmd.Flags().Float64Var(&flags.limit, "limit", 0, "spending limit, in dollars or percent")
	cmd.Flags().IntVar(&flags.period, "period", 30, "period in days: 7 or 30")
	cmd.Flags().StringVar(&flags.start, "start", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().Int64Var(&flags.category, "category", 0, "category id; 0 means all spending")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

func goalsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
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
			if err := a.goals().Delete(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted goal %d", id)))
			return nil
		},
	}
}
