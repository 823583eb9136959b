package viz

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/nemsim/internal/reduce"
)

// Series picks one observable out of each report.
type Series struct {
	Caption string
	Pick    func(reduce.Result) float64
}

var DefaultSeries = []Series{
	{Caption: "order parameter S", Pick: func(r reduce.Result) float64 { return r.Order }},
	{Caption: "energy per site", Pick: func(r reduce.Result) float64 { return r.MeanEnergy }},
	{Caption: "acceptance ratio", Pick: func(r reduce.Result) float64 { return r.AcceptanceRatio }},
	{Caption: "temperature", Pick: func(r reduce.Result) float64 { return r.Temperature }},
}

// Plot draws one asciigraph chart per series. Reports without proposals are
// skipped for the acceptance series.
func Plot(reports []reduce.Result, series []Series, width, height int) string {
	var charts []string
	for _, s := range series {
		data := make([]float64, 0, len(reports))
		for _, r := range reports {
			if s.Caption == "acceptance ratio" && r.AcceptanceRatio == reduce.RatioUndefined {
				continue
			}
			data = append(data, s.Pick(r))
		}
		if len(data) == 0 {
			continue
		}
		charts = append(charts, asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(s.Caption),
		))
	}
	return strings.Join(charts, "\n\n")
}
