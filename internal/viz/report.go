package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/san-kum/nemsim/internal/reduce"
	"github.com/san-kum/nemsim/internal/storage"
)

// maxReportRows caps the report table; longer series are thinned evenly and
// always keep the last report.
const maxReportRows = 20

// Report writes a stored run as a markdown document.
func Report(meta *storage.RunMetadata, reports []reduce.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", meta.ID)
	fmt.Fprintf(&b, "%s, %d×%d lattice on %d ranks, backend `%s`.\n\n",
		meta.Timestamp.Format("2006-01-02 15:04:05"), meta.Size, meta.Size, meta.Procs, meta.Backend)

	b.WriteString("## Settings\n\n| setting | value |\n|---|---|\n")
	temp := fmt.Sprintf("%g", meta.Temperature)
	if meta.TemperatureEnd > 0 {
		temp = fmt.Sprintf("%g → %g (linear)", meta.Temperature, meta.TemperatureEnd)
	}
	fmt.Fprintf(&b, "| temperature | %s |\n", temp)
	fmt.Fprintf(&b, "| sweeps | %d |\n", meta.Sweeps)
	fmt.Fprintf(&b, "| report every | %d |\n", meta.ReportEvery)
	fmt.Fprintf(&b, "| max step | %.4f |\n", meta.MaxStep)
	fmt.Fprintf(&b, "| seed | %d |\n", meta.Seed)
	fmt.Fprintf(&b, "| elapsed | %s |\n\n", meta.Elapsed)

	if len(meta.Metrics) > 0 {
		b.WriteString("## Metrics\n\n| metric | value |\n|---|---|\n")
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "| %s | %.6f |\n", name, meta.Metrics[name])
		}
		b.WriteString("\n")
	}

	if len(reports) > 0 {
		b.WriteString("## Reports\n\n| sweep | T | S | energy / site | acceptance |\n|---|---|---|---|---|\n")
		for _, r := range thin(reports, maxReportRows) {
			fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.4f | %s |\n",
				r.Sweep, r.Temperature, r.Order, r.MeanEnergy, FormatRatio(r.AcceptanceRatio))
		}
	}
	return b.String()
}

func thin(reports []reduce.Result, n int) []reduce.Result {
	if len(reports) <= n {
		return reports
	}
	out := make([]reduce.Result, 0, n)
	stride := float64(len(reports)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, reports[int(float64(i)*stride+0.5)])
	}
	return out
}

// RenderMarkdown renders md for the terminal. An empty style picks one from
// the terminal background.
func RenderMarkdown(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
