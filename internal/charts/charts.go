// Package charts renders dashboard data as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"expensetracker/internal/core"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

const (
	breakdownSize = 800
	statsWidth    = 600
	statsHeight   = 400
)

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// RenderBreakdown draws the category breakdown as a pie chart, one slice per
// category with a positive amount. Slices use the category's colour, falling
// back to the one AssignColor picks from DefaultPalette.
func RenderBreakdown(title string, breakdown []core.CategoryBreakdown) ([]byte, error) {
	values := make([]chart.Value, 0, len(breakdown))
	for _, b := range core.ApplyColors(breakdown, core.DefaultPalette) {
		if b.TotalAmount <= 0 {
			continue
		}
		fill := hexColor(*b.Color)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s (%.1f%%)", b.CategoryName, core.FormatAmount(b.TotalAmount), b.Percentage),
			Value: b.TotalAmount,
			Style: chart.Style{
				FillColor:   fill,
				StrokeColor: chart.ColorWhite,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  breakdownSize,
		Height: breakdownSize,
		Values: values,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render category breakdown: %w", err)
	}
	return buffer.Bytes(), nil
}

// RenderGoalStats draws the goal tallies as a bar chart in the goal card colours.
func RenderGoalStats(title string, stats core.GoalStats) ([]byte, error) {
	if stats.Completed+stats.InProgress+stats.Failed == 0 {
		return nil, ErrNoData
	}

	bar := func(label string, n int, hex string) chart.Value {
		c := hexColor(hex)
		return chart.Value{
			Label: fmt.Sprintf("%s: %d", label, n),
			Value: float64(n),
			Style: chart.Style{FillColor: c, StrokeColor: c},
		}
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    statsWidth,
		Height:   statsHeight,
		BarWidth: 80,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxInt(stats.Completed, stats.InProgress, stats.Failed))},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
		},
		Bars: []chart.Value{
			bar("Completed", stats.Completed, core.ColorGreen),
			bar("In progress", stats.InProgress, core.ColorNeutralOrange),
			bar("Failed", stats.Failed, core.ColorRed),
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render goal stats: %w", err)
	}
	return buffer.Bytes(), nil
}

func maxInt(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
