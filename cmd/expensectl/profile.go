package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"expensetracker/internal/api"
)

func profileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your account profile",
	}
	cmd.AddCommand(profileShowCmd(a))
	cmd.AddCommand(profileUpdateCmd(a))
	return cmd
}

func profileShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.backend.UserProfile(cmd.Context(), sess, sess.UserID)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile as JSON")
	return cmd
}

// mergeProfile overlays the changed flags on the current profile.
func mergeProfile(current api.UserProfile, changed func(string) bool, first, last, username string) (api.ProfileUpdate, error) {
	req := api.ProfileUpdate{FirstName: current.FirstName, LastName: current.LastName, Username: current.Username}
	if !changed("first-name") && !changed("last-name") && !changed("username") {
		return req, errors.New("nothing to update, set --first-name, --last-name or --username")
	}
	if changed("first-name") {
		req.FirstName = strings.TrimSpace(first)
	}
	if changed("last-name") {
		req.LastName = strings.TrimSpace(last)
	}
	if changed("username") {
		req.Username = strings.TrimSpace(username)
		if req.Username == "" {
			return req, errors.New("--username must not be empty")
		}
	}
	return req, nil
}

func profileUpdateCmd(a *app) *cobra.Command {
	var first, last, username string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name or username",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			current, err := a.backend.UserProfile(cmd.Context(), sess, sess.UserID)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			req, err := mergeProfile(current, cmd.Flags().Changed, first, last, username)
			if err != nil {
				return err
			}
			if err := a.backend.UpdateProfile(cmd.Context(), sess, req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Profile updated"))
			return nil
		},
	}
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&username, "username", "", "username")
	return cmd
}

func printProfile(w io.Writer, p api.UserProfile) {
	fmt.Fprintln(w, titleStyle.Render(strings.TrimSpace(p.FirstName+" "+p.LastName)))
	fmt.Fprintf(w, "Username: %s\n", boldStyle.Render(p.Username))
	fmt.Fprintf(w, "User id:  %d\n", p.ID)
}
