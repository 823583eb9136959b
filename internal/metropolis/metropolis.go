// Package metropolis performs Metropolis Monte Carlo sweeps over a lattice
// strip.
//
// A sweep visits every owned site once in raster order, row by row and left to
// right. Each visit proposes θ' = θ + δ with δ uniform in [-MaxStep, MaxStep),
// evaluates the four-neighbour energy change, and accepts with probability
// min(1, exp(-ΔE/T)). Accepted angles are written in place, so later sites in
// the same sweep see them; sites on other ranks only see them after the next
// halo exchange.
package metropolis

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/lattice"
)

// DefaultMaxStep is a tenth of a full turn.
const DefaultMaxStep = 0.1 * 2 * math.Pi

// Counts tallies one sweep.
type Counts struct {
	Accepted int
	Proposed int
}

// Sweeper owns the random stream of one rank.
type Sweeper struct {
	field   *lattice.Field
	backend energy.Backend
	rng     *rand.Rand
	maxStep float64
}

func New(field *lattice.Field, backend energy.Backend, rng *rand.Rand, maxStep float64) (*Sweeper, error) {
	if maxStep <= 0 || math.IsNaN(maxStep) || math.IsInf(maxStep, 0) {
		return nil, fmt.Errorf("metropolis: max step must be positive and finite, got %v", maxStep)
	}
	return &Sweeper{field: field, backend: backend, rng: rng, maxStep: maxStep}, nil
}

// Sweep attempts one update at every owned site at reduced temperature temp.
// Both random draws are taken for every site so the stream advances the same
// way whatever is accepted.
func (s *Sweeper) Sweep(temp float64) Counts {
	var c Counts
	f := s.field
	for lr := 1; lr <= f.Rows(); lr++ {
		for col := 0; col < f.Cols(); col++ {
			old := f.At(lr, col)
			proposed := Wrap(old + (2*s.rng.Float64()-1)*s.maxStep)
			dE := s.backend.Delta(f, lr, col, old, proposed)

			if Accept(dE, temp, s.rng.Float64()) {
				if err := f.Set(lr, col, proposed); err != nil {
					panic(err)
				}
				c.Accepted++
			}
		}
	}
	c.Proposed = f.Sites()
	return c
}

// AcceptanceProbability is the Metropolis probability min(1, exp(-dE/temp)).
func AcceptanceProbability(dE, temp float64) float64 {
	if dE <= 0 {
		return 1
	}
	if temp <= 0 {
		return 0
	}
	return math.Exp(-dE / temp)
}

// Accept applies the Metropolis rule to a uniform draw u in [0, 1).
// Non-positive dE is always accepted, whatever u is.
func Accept(dE, temp, u float64) bool {
	if dE <= 0 {
		return true
	}
	return u < AcceptanceProbability(dE, temp)
}

// Wrap maps an angle into [0, 2π).
func Wrap(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
