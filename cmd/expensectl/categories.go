package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List and manage custom categories",
	}
	cmd.AddCommand(categoriesListCmd(a))
	cmd.AddCommand(categoriesSaveCmd(a, false))
	cmd.AddCommand(categoriesSaveCmd(a, true))
	cmd.AddCommand(categoriesDeleteCmd(a))
	return cmd
}

func categoriesListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := a.backend.Categories(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), cats)
			}
			return printCategories(cmd.OutOrStdout(), cats)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print categories as JSON")
	return cmd
}

type categoryFlags struct {
	name  string
	color string
}

func (f categoryFlags) request() (api.CategoryRequest, error) {
	name := strings.TrimSpace(f.name)
	if name == "" {
		return api.CategoryRequest{}, errors.New("--name is required")
	}
	if !hexColor.MatchString(f.color) {
		return api.CategoryRequest{}, fmt.Errorf("--color must look like #A1B2C3, got %q", f.color)
	}
	return api.CategoryRequest{Name: name, Color: strings.ToUpper(f.color)}, nil
}

// categoriesSaveCmd builds "create", or "update <id>" when replace is set.
// Both send the full category.
func categoriesSaveCmd(a *app, replace bool) *cobra.Command {
	var flags categoryFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a custom category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if replace {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			var cat core.Category
			if replace {
				cat, err = a.backend.UpdateCategory(cmd.Context(), sess, id, req)
			} else {
				cat, err = a.backend.CreateCategory(cmd.Context(), sess, req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Saved category %d", cat.ID))+" "+swatch(cat.Color)+" "+cat.Name)
			return nil
		},
	}
	if replace {
		cmd.Use = "update <id>"
		cmd.Short = "Rename or recolor a custom category"
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "category name")
	cmd.Flags().StringVar(&flags.color, "color", "#808080", "hex color")
	return cmd
}

func categoriesDeleteCmd(a *app) *cobra.Command {
	var reassign int64
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom category",
		Long:  "Delete a custom category. A category with transactions needs --reassign to move them first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var to *int64
			if cmd.Flags().Changed("reassign") {
				if reassign <= 0 || reassign == id {
					return fmt.Errorf("invalid --reassign %d", reassign)
				}
				to = &reassign
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.backend.DeleteCategory(cmd.Context(), sess, id, to); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted category %d", id)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&reassign, "reassign", 0, "category id that receives the transactions")
	return cmd
}

func printCategories(w io.Writer, cats []core.Category) error {
	if len(cats) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No categories"))
		return nil
	}
	tw := newTable(w)
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\n", c.ID, swatch(c.Color), c.Name, subtleStyle.Render(c.Color))
	}
	return tw.Flush()
}
