package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// yearMonth resolves the --year/--month flags, defaulting to now's month.
func yearMonth(year, month int, now time.Time) (int, time.Month, error) {
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if year < 1970 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid --year %d", year)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid --month %d", month)
	}
	return year, time.Month(month), nil
}

func printDashboard(w io.Writer, d core.Dashboard) error {
	fmt.Fprintln(w, titleStyle.Render(core.FormatDateRange(d.Start, d.End)))
	fmt.Fprintf(w, "Total spend: %s\n", boldStyle.Render(d.TotalSpendText))
	if d.Level != nil {
		fmt.Fprintf(w, "Level %d  %s/%s XP (%.0f%%)\n",
			d.Level.Level,
			humanize.Comma(int64(d.Level.CurrentXP)),
			humanize.Comma(int64(d.Level.TotalXPForNextLevel)),
			d.Level.Progress()*100)
	}

	if len(d.CategoryBreakdown) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Categories"))
		tw := newTable(w)
		for _, b := range d.CategoryBreakdown {
			color := ""
			if b.Color != nil {
				color = *b.Color
			}
			fmt.Fprintf(tw, "%s %s\t%s\t%.1f%%\n", swatch(color), b.CategoryName, core.FormatAmount(b.TotalAmount), b.Percentage)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.Goals) > 0 {
		fmt.Fprintln(w)
		return printGoals(w, d.Goals, d.Stats)
	}
	return nil
}

func printGoals(w io.Writer, goals []core.GoalView, stats core.GoalStats) error {
	fmt.Fprintln(w, titleStyle.Render("Goals"))
	tw := newTable(w)
	for _, g := range goals {
		c := g.Classification
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			g.Goal.ID,
			stateStyle(c.State).Render(c.Icon+" "+c.MainText),
			c.SecondaryText,
			subtleStyle.Render(c.DateRange),
			c.TimeLeftText)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%d completed, %d in progress, %d failed",
		stats.Completed, stats.InProgress, stats.Failed)))
	return nil
}

func printGoalList(w io.Writer, list services.GoalList) error {
	if len(list.Goals) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No goals yet"))
		return nil
	}
	return printGoals(w, list.Goals, list.Stats)
}

func voteMark(v core.Vote) string {
	switch v {
	case core.VoteUp:
		return successStyle.Render("▲")
	case core.VoteDown:
		return errorStyle.Render("▼")
	}
	return " "
}

func printDeals(w io.Writer, deals []core.Deal) error {
	if len(deals) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No deals"))
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, boldStyle.Render("ID")+"\t"+boldStyle.Render("Deal")+"\t"+boldStyle.Render("Price")+"\t"+boldStyle.Render("Score")+"\t\t"+boldStyle.Render("Where"))
	for _, d := range deals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%+d\t%s\t%s\n",
			d.ID, d.Name, core.FormatAmount(d.Price), d.Upvotes-d.Downvotes, voteMark(d.UserVote), truncate(d.Address, 40))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
