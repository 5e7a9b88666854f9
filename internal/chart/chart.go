// Package chart turns the numeric columns of a table into a bar chart.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nconklindev/datasweep/internal/table"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// MaxSeries is the number of numeric columns charted.
const MaxSeries = 2

// Series is one charted column. A nil value is a missing cell.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Chart holds up to MaxSeries series sharing the row position as x axis.
type Chart struct {
	Series []Series `json:"series"`
	Rows   int      `json:"rows"`
}

// FromTable takes the first MaxSeries numeric columns of t in table order.
// Fewer are taken when fewer exist.
func FromTable(t *table.Table) Chart {
	c := Chart{Rows: t.Rows(), Series: []Series{}}

	for _, col := range t.NumericColumns() {
		if len(c.Series) == MaxSeries {
			break
		}
		s := Series{Name: col.Name, Values: make([]*float64, len(col.Cells))}
		for i, cell := range col.Cells {
			if !cell.Missing {
				v := cell.Num
				s.Values[i] = &v
			}
		}
		c.Series = append(c.Series, s)
	}

	return c
}

type Options struct {
	Width   int
	MaxRows int
}

var seriesStyles = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#4DA8FF")),
}

var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

// Render draws the chart as horizontal bars, one group per row.
func Render(c Chart, opts Options) string {
	if len(c.Series) == 0 {
		return mutedStyle.Render("No numeric columns to chart")
	}
	if opts.Width <= 0 {
		opts.Width = 40
	}
	rows := c.Rows
	if opts.MaxRows > 0 && rows > opts.MaxRows {
		rows = opts.MaxRows
	}

	scale := 0.0
	for _, s := range c.Series {
		for _, v := range s.Values[:rows] {
			if v != nil {
				scale = math.Max(scale, math.Abs(*v))
			}
		}
	}

	var b strings.Builder

	legend := make([]string, len(c.Series))
	for i, s := range c.Series {
		legend[i] = seriesStyles[i].Render("█ " + s.Name)
	}
	b.WriteString(strings.Join(legend, "   "))
	b.WriteString("\n\n")

	labelWidth := len(strconv.Itoa(max(rows-1, 0)))
	for r := 0; r < rows; r++ {
		for i, s := range c.Series {
			label := strings.Repeat(" ", labelWidth)
			if i == 0 {
				label = fmt.Sprintf("%*d", labelWidth, r)
			}
			b.WriteString(mutedStyle.Render(label + " │"))
			b.WriteString(renderBar(s.Values[r], scale, opts.Width, seriesStyles[i]))
			b.WriteString("\n")
		}
	}

	if rows < c.Rows {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("… %s more rows", humanize.Comma(int64(c.Rows-rows)))))
		b.WriteString("\n")
	}

	return b.String()
}

func renderBar(v *float64, scale float64, width int, style lipgloss.Style) string {
	if v == nil {
		return mutedStyle.Render(" n/a")
	}

	n := 0
	if scale > 0 {
		n = int(math.Round(math.Abs(*v) / scale * float64(width)))
	}
	bar := strings.Repeat("█", n)
	if *v < 0 {
		bar = strings.Repeat("░", n)
	}
	return style.Render(bar) + " " + strconv.FormatFloat(*v, 'f', -1, 64)
}
