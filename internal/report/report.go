// Package report renders a dashboard snapshot for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/pipeline"
	"superstore-dashboard/internal/services"
	"superstore-dashboard/internal/ui/format"
	"superstore-dashboard/internal/ui/templates"
)

const dateLayout = "2006-01-02"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	upStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	downStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	tileStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(18)
)

// Render writes the KPI tiles, trend, benchmark, top products and heatmap.
func Render(w io.Writer, snap *services.Snapshot) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(templates.Title) + "\n")
	b.WriteString(mutedStyle.Render(selection(snap)) + "\n\n")

	for _, notice := range []string{snap.Validation, snap.DateNotice} {
		if notice != "" {
			b.WriteString(warningStyle.Render(notice) + "\n")
		}
	}
	if snap.NoData {
		b.WriteString(warningStyle.Render(templates.NoDataMessage) + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		tile("Total Sales", format.Currency(snap.KPIs.TotalSales)),
		tile("Quantity Sold", format.Count(snap.KPIs.TotalQuantity)),
		tile("Total Profit", format.Currency(snap.KPIs.TotalProfit)),
		tile("Margin Rate", format.Percent(snap.KPIs.MarginRate)),
	) + "\n")

	if snap.Trend != nil {
		style := upStyle
		if *snap.Trend < 0 {
			style = downStyle
		}
		fmt.Fprintf(&b, "Sales Change vs Previous 30 Days: %s\n", style.Render(format.Change(*snap.Trend)))
	}
	fmt.Fprintf(&b, "Average Sales per Order (all data): %s\n\n", format.Currency(snap.Benchmark))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if err := topProducts(w, snap); err != nil {
		return err
	}
	return heatmap(w, snap)
}

func tile(label, value string) string {
	return tileStyle.Render(mutedStyle.Render(label) + "\n" + lipgloss.NewStyle().Bold(true).Render(value))
}

func selection(snap *services.Snapshot) string {
	parts := make([]string, 0, len(snap.Filters)+2)
	for _, p := range snap.Filters {
		s := fmt.Sprintf("%s=%s", p.Column, p.Selected)
		if p.Reset {
			s += " (reset)"
		}
		parts = append(parts, s)
	}
	parts = append(parts,
		fmt.Sprintf("%s..%s", snap.Range.From.Format(dateLayout), snap.Range.To.Format(dateLayout)),
		fmt.Sprintf("%d orders", snap.RecordCount),
	)
	return strings.Join(parts, "  ")
}

func topProducts(w io.Writer, snap *services.Snapshot) error {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Top %d Products by %s", pipeline.TopN, snap.Metric)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "#\tProduct\t%s\t\n", snap.Metric)
	for i, p := range snap.TopProducts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", i+1, truncate(p.ProductName, 48), metricValue(snap.Metric, p.Totals))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func heatmap(w io.Writer, snap *services.Snapshot) error {
	fmt.Fprintln(w, headerStyle.Render("Sales by Category and Sub-Category"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tSub-Category\tSales")
	for _, c := range snap.Heatmap {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Category, c.SubCategory, format.Currency(c.Sales))
	}
	return tw.Flush()
}

func metricValue(m models.Metric, t models.Totals) string {
	switch m {
	case models.MetricQuantity:
		return format.Count(t.Quantity)
	case models.MetricMarginRate:
		return format.Percent(t.MarginRate)
	default:
		return format.Currency(m.Of(t))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
