package metrics

import "github.com/san-kum/nemsim/internal/reduce"

type Mean struct {
	name    string
	pick    func(reduce.Result) (float64, bool)
	sum     float64
	samples int
}

func NewMeanOrder() *Mean {
	return &Mean{
		name: "mean_order",
		pick: func(r reduce.Result) (float64, bool) { return r.Order, true },
	}
}

func NewMeanEnergy() *Mean {
	return &Mean{
		name: "mean_energy",
		pick: func(r reduce.Result) (float64, bool) { return r.MeanEnergy, true },
	}
}

// NewMeanAcceptance skips reports with no proposals.
func NewMeanAcceptance() *Mean {
	return &Mean{
		name: "mean_acceptance",
		pick: func(r reduce.Result) (float64, bool) {
			return r.AcceptanceRatio, r.AcceptanceRatio != reduce.RatioUndefined
		},
	}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(r reduce.Result) {
	v, ok := m.pick(r)
	if !ok {
		return
	}
	m.sum += v
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// SpecificHeat estimates the heat capacity per site from energy fluctuations,
// N·(<e²> - <e>²)/T², with e the mean energy per site. Only meaningful for
// runs at a fixed temperature.
type SpecificHeat struct {
	sites   float64
	sum     float64
	sumSq   float64
	sumT    float64
	samples int
}

func NewSpecificHeat(sites int) *SpecificHeat {
	return &SpecificHeat{sites: float64(sites)}
}

func (c *SpecificHeat) Name() string { return "specific_heat" }

func (c *SpecificHeat) Observe(r reduce.Result) {
	c.sum += r.MeanEnergy
	c.sumSq += r.MeanEnergy * r.MeanEnergy
	c.sumT += r.Temperature
	c.samples++
}

func (c *SpecificHeat) Value() float64 {
	if c.samples < 2 {
		return 0
	}
	n := float64(c.samples)
	mean := c.sum / n
	variance := c.sumSq/n - mean*mean
	t := c.sumT / n
	if variance < 0 || t <= 0 {
		return 0
	}
	return c.sites * variance / (t * t)
}

func (c *SpecificHeat) Reset() {
	*c = SpecificHeat{sites: c.sites}
}
