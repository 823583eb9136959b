package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nemsim/internal/reduce"
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, MetricLabel.Render(label), MetricValue.Render(value))
}

// FormatRatio prints an acceptance ratio, or "n/a" when nothing was proposed.
func FormatRatio(r float64) string {
	if r == reduce.RatioUndefined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", r)
}

// Summary renders the final global result and the run metrics in a panel.
func Summary(title string, final *reduce.Result, metrics map[string]float64) string {
	lines := []string{Title.Render(title), ""}
	if final != nil {
		lines = append(lines,
			row("sweep", fmt.Sprintf("%d", final.Sweep)),
			row("temperature", fmt.Sprintf("%.4f", final.Temperature)),
			row("order S", fmt.Sprintf("%.6f", final.Order)),
			row("energy / site", fmt.Sprintf("%.6f", final.MeanEnergy)),
			row("acceptance", FormatRatio(final.AcceptanceRatio)),
		)
	}
	if len(metrics) > 0 {
		lines = append(lines, "", Subtle.Render("run metrics"))
		names := make([]string, 0, len(metrics))
		for name := range metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, row(name, fmt.Sprintf("%.6f", metrics[name])))
		}
	}
	return Panel.Render(strings.Join(lines, "\n"))
}
