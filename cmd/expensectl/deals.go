package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
)

func dealsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Browse and vote on community deals",
	}
	cmd.AddCommand(dealsListCmd(a))
	cmd.AddCommand(dealsVoteCmd(a, core.Up))
	cmd.AddCommand(dealsVoteCmd(a, core.Down))
	cmd.AddCommand(dealsCreateCmd(a))
	cmd.AddCommand(dealsUpdateCmd(a))
	cmd.AddCommand(dealsDeleteCmd(a))
	return cmd
}

func dealsListCmd(a *app) *cobra.Command {
	var mine, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals, highest score first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			var filter api.DealFilter
			if mine {
				id := sess.UserID
				filter.UserID = &id
			}
			deals, err := a.deals().List(cmd.Context(), sess, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), deals)
			}
			return printDeals(cmd.OutOrStdout(), deals)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only deals posted by me")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print deals as JSON")
	return cmd
}

// dealsVoteCmd toggles a vote: voting the same way twice cancels it.
func dealsVoteCmd(a *app, dir core.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir) + "vote <id>",
		Short: fmt.Sprintf("Toggle a %svote on a deal", dir),
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
			d, err := a.deals().VoteByID(cmd.Context(), sess, id, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  ▲%d ▼%d\n", voteMark(d.UserVote), boldStyle.Render(d.Name), d.Upvotes, d.Downvotes)
			return nil
		},
	}
}

type dealFlags struct {
	name        string
	description string
	price       float64
	address     string
	latitude    float64
	longitude   float64
	date        string
}

func (f dealFlags) request(now time.Time) (api.CreateDealRequest, error) {
	if strings.TrimSpace(f.name) == "" {
		return api.CreateDealRequest{}, errors.New("--name is required")
	}
	if f.price < 0 {
		return api.CreateDealRequest{}, fmt.Errorf("--price must not be negative, got %v", f.price)
	}
	if f.latitude < -90 || f.latitude > 90 || f.longitude < -180 || f.longitude > 180 {
		return api.CreateDealRequest{}, fmt.Errorf("invalid location %v,%v", f.latitude, f.longitude)
	}
	date := f.date
	if date == "" {
		date = now.Format("2006-01-02")
	} else if _, err := core.ParseGoalTime(date); err != nil {
		return api.CreateDealRequest{}, fmt.Errorf("--date: %w", err)
	}
	return api.CreateDealRequest{
		Name:        strings.TrimSpace(f.name),
		Description: f.description,
		Price:       f.price,
		Date:        date,
		Address:     f.address,
		Latitude:    f.latitude,
		Longitude:   f.longitude,
	}, nil
}

func dealsCreateCmd(a *app) *cobra.Command {
	var flags dealFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a new deal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.backend.CreateDeal(cmd.Context(), sess, req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Posted "+req.Name))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (f *dealFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "deal title")
	cmd.Flags().StringVar(&f.description, "description", "", "details")
	cmd.Flags().Float64Var(&f.price, "price", 0, "price in dollars")
	cmd.Flags().StringVar(&f.address, "address", "", "where the deal is")
	cmd.Flags().Float64Var(&f.latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&f.longitude, "lon", 0, "longitude")
	cmd.Flags().StringVar(&f.date, "date", "", "date YYYY-MM-DD (default today)")
}

// dealsUpdateCmd replaces every field of one of your deals.
func dealsUpdateCmd(a *app) *cobra.Command {
	var flags dealFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit one of your deals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.backend.UpdateDeal(cmd.Context(), sess, id, req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Updated deal %d", id)))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func dealsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your deals",
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
			if err := a.backend.DeleteDeal(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted deal %d", id)))
			return nil
		},
	}
}
