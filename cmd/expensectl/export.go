package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/sheets/google"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export dashboards to external stores",
	}
	cmd.AddCommand(exportSheetsCmd(a))
	return cmd
}

func exportSheetsCmd(a *app) *cobra.Command {
	var months monthFlags
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Append the month's dashboard to the configured spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, month, err := months.resolve()
			if err != nil {
				return err
			}
			client, err := google.NewFromConfig(cmd.Context(), a.cfg, a.logger)
			if errors.Is(err, google.ErrNotConfigured) {
				return errors.New("spreadsheet export is not configured, set GOOGLE_SPREADSHEET_ID and service account credentials")
			}
			if err != nil {
				return err
			}

			d, err := a.loadDashboard(cmd, &months)
			if err != nil {
				return err
			}
			rng, err := client.ExportMonth(cmd.Context(), year, month, d)
			if errors.Is(err, google.ErrAlreadyExported) {
				fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render(
					fmt.Sprintf("%d-%02d is already in sheet %s", year, month, client.SheetName(year))))
				return nil
			}
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Exported to "+rng))
			return nil
		},
	}
	months.register(cmd)
	return cmd
}
