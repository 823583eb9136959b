// Package reduce combines per-rank sweep statistics into global observables at
// the coordinating rank.
package reduce

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/lattice"
)

// RatioUndefined is the acceptance ratio reported when nothing was proposed.
const RatioUndefined = -1.0

// Stats are one rank's partial sums. All fields add across ranks.
type Stats struct {
	Accepted int64
	Proposed int64
	Energy   float64
	Cos2     float64
	Sin2     float64
	Sites    int64
}

const statsLen = 6

func (s Stats) vector() []float64 {
	return []float64{float64(s.Accepted), float64(s.Proposed), s.Energy, s.Cos2, s.Sin2, float64(s.Sites)}
}

func fromVector(v []float64) Stats {
	return Stats{
		Accepted: int64(v[0]),
		Proposed: int64(v[1]),
		Energy:   v[2],
		Cos2:     v[3],
		Sin2:     v[4],
		Sites:    int64(v[5]),
	}
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Accepted: s.Accepted + o.Accepted,
		Proposed: s.Proposed + o.Proposed,
		Energy:   s.Energy + o.Energy,
		Cos2:     s.Cos2 + o.Cos2,
		Sin2:     s.Sin2 + o.Sin2,
		Sites:    s.Sites + o.Sites,
	}
}

// Combine sums parts in the order given.
func Combine(parts ...Stats) Stats {
	var total Stats
	for _, p := range parts {
		total = total.Add(p)
	}
	return total
}

// Measure sums the site energies and the double-angle components over the
// owned sites of f. The halos must be current.
func Measure(f *lattice.Field, b energy.Backend) Stats {
	var s Stats
	for lr := 1; lr <= f.Rows(); lr++ {
		for c := 0; c < f.Cols(); c++ {
			a := f.At(lr, c)
			s.Energy += b.SiteEnergy(f, lr, c, a)
			sin, cos := math.Sincos(2 * a)
			s.Cos2 += cos
			s.Sin2 += sin
		}
	}
	s.Sites = int64(f.Sites())
	return s
}

// Result holds the global observables for one reduction.
type Result struct {
	Sweep           int     `json:"sweep"`
	Temperature     float64 `json:"temperature"`
	AcceptanceRatio float64 `json:"acceptance_ratio"`
	Order           float64 `json:"order"`
	MeanEnergy      float64 `json:"mean_energy"`
	Accepted        int64   `json:"accepted"`
	Proposed        int64   `json:"proposed"`
}

// Finalize turns global sums over an l×l lattice into observables.
func Finalize(total Stats, l int) Result {
	r := Result{
		AcceptanceRatio: RatioUndefined,
		Accepted:        total.Accepted,
		Proposed:        total.Proposed,
	}
	if total.Proposed > 0 {
		r.AcceptanceRatio = float64(total.Accepted) / float64(total.Proposed)
	}
	n := float64(l) * float64(l)
	if n > 0 {
		r.MeanEnergy = total.Energy / n
		r.Order = OrderParameter(total.Cos2/n, total.Sin2/n)
	}
	return r
}

// OrderParameter is the largest eigenvalue of the normalised 2D alignment
// tensor Q = [[<cos 2θ>, <sin 2θ>], [<sin 2θ>, -<cos 2θ>]].
func OrderParameter(meanCos2, meanSin2 float64) float64 {
	return largestEigenvalue(meanCos2, meanSin2, -meanCos2)
}

func largestEigenvalue(q11, q12, q22 float64) float64 {
	half := (q11 - q22) / 2
	return (q11+q22)/2 + math.Hypot(half, q12)
}

// Reducer performs the collective reduction for one rank.
type Reducer struct {
	comm comm.Communicator
	root int
	l    int
	seq  uint64
}

func New(c comm.Communicator, root, l int) *Reducer {
	return &Reducer{comm: c, root: root, l: l}
}

func (r *Reducer) IsCoordinator() bool { return r.comm.Rank() == r.root }

// Reduce sums local across all ranks. Only the coordinator gets a result;
// every other rank gets nil. Every rank must call Reduce the same number of
// times.
func (r *Reducer) Reduce(ctx context.Context, local Stats) (*Result, error) {
	r.seq++
	total, err := comm.ReduceSum(ctx, r.comm, r.root, r.seq, local.vector())
	if err != nil {
		return nil, fmt.Errorf("reduce %d: %w", r.seq, err)
	}
	if total == nil {
		return nil, nil
	}
	if len(total) != statsLen {
		return nil, fmt.Errorf("reduce %d: %w", r.seq, comm.ErrLength)
	}
	res := Finalize(fromVector(total), r.l)
	return &res, nil
}
