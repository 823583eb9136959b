package metrics

import (
	"sync"

	"github.com/san-kum/nemsim/internal/reduce"
)

// Metric accumulates a run-level value from the global reports.
type Metric interface {
	Name() string
	Observe(r reduce.Result)
	Value() float64
	Reset()
}

// Defaults are the metrics stored with every run on a lattice of sites sites.
func Defaults(sites int) []Metric {
	return []Metric{
		NewMeanOrder(),
		NewMeanEnergy(),
		NewMeanAcceptance(),
		NewSpecificHeat(sites),
	}
}

// Set fans reports out to its metrics. It is safe to share between the
// goroutine producing reports and the one reading values.
type Set struct {
	mu      sync.Mutex
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

func (s *Set) OnReport(r reduce.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Observe(r)
	}
}

func (s *Set) Values() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Reset()
	}
}
