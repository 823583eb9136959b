package lattice

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Side selects one edge of a strip.
type Side int

const (
	Top Side = iota
	Bottom
)

func (s Side) String() string {
	if s == Top {
		return "top"
	}
	return "bottom"
}

// Field is a rank's strip: rows owned rows of width cols plus one halo row on
// each side, stored row-major in a single slice.
type Field struct {
	band Band
	cols int
	data []float64
}

// NewField allocates a zeroed strip for band on a lattice cols wide.
func NewField(band Band, cols int) (*Field, error) {
	if band.Rows() <= 0 {
		return nil, fmt.Errorf("%w: rank %d owns no rows", ErrBadPartition, band.Rank)
	}
	if cols <= 0 {
		return nil, fmt.Errorf("%w: width %d", ErrBadPartition, cols)
	}
	return &Field{
		band: band,
		cols: cols,
		data: make([]float64, (band.Rows()+2)*cols),
	}, nil
}

// FromGlobal builds the strip for band out of a full lattice, halos included.
func FromGlobal(global [][]float64, band Band) (*Field, error) {
	l := len(global)
	if l == 0 || band.End > l || band.Start < 0 {
		return nil, fmt.Errorf("%w: band [%d,%d) on %d rows", ErrBadPartition, band.Start, band.End, l)
	}
	f, err := NewField(band, len(global[0]))
	if err != nil {
		return nil, err
	}
	for lr := 0; lr <= band.Rows()+1; lr++ {
		g := ((band.Start + lr - 1) + l) % l
		if len(global[g]) != f.cols {
			return nil, fmt.Errorf("%w: ragged row %d", ErrBadPartition, g)
		}
		copy(f.row(lr), global[g])
	}
	return f, nil
}

func (f *Field) Band() Band { return f.band }

// Rows is the number of owned rows.
func (f *Field) Rows() int { return f.band.Rows() }

// Cols is the lattice width.
func (f *Field) Cols() int { return f.cols }

// Sites is the number of owned sites.
func (f *Field) Sites() int { return f.band.Rows() * f.cols }

func (f *Field) row(lr int) []float64 {
	return f.data[lr*f.cols : (lr+1)*f.cols]
}

func (f *Field) inStrip(lr, col int) bool {
	return lr >= 0 && lr <= f.band.Rows()+1 && col >= 0 && col < f.cols
}

func (f *Field) owned(lr int) bool {
	return lr >= 1 && lr <= f.band.Rows()
}

// Get reads a site anywhere in the strip, halo rows included.
func (f *Field) Get(lr, col int) (float64, error) {
	if !f.inStrip(lr, col) {
		return 0, &AccessError{Op: "get", Row: lr, Col: col, Err: ErrInvalidAccess}
	}
	return f.data[lr*f.cols+col], nil
}

// At is Get for hot loops; an out-of-strip access panics with an *AccessError.
func (f *Field) At(lr, col int) float64 {
	if !f.inStrip(lr, col) {
		panic(&AccessError{Op: "at", Row: lr, Col: col, Err: ErrInvalidAccess})
	}
	return f.data[lr*f.cols+col]
}

// Set writes an owned site. Halo rows are read-only.
func (f *Field) Set(lr, col int, angle float64) error {
	if !f.owned(lr) || col < 0 || col >= f.cols {
		return &AccessError{Op: "set", Row: lr, Col: col, Err: ErrInvalidAccess}
	}
	f.data[lr*f.cols+col] = angle
	return nil
}

// Halo returns a copy of the halo row on side.
func (f *Field) Halo(side Side) []float64 {
	return f.copyRow(f.haloIndex(side))
}

// Boundary returns a copy of the owned row adjacent to side, ready to send.
func (f *Field) Boundary(side Side) []float64 {
	if side == Top {
		return f.copyRow(1)
	}
	return f.copyRow(f.band.Rows())
}

// SetHalo replaces the halo row on side with a copy of row.
func (f *Field) SetHalo(side Side, row []float64) error {
	if len(row) != f.cols {
		return &AccessError{Op: "set halo " + side.String(), Row: f.haloIndex(side), Col: len(row), Err: ErrInvalidAccess}
	}
	copy(f.row(f.haloIndex(side)), row)
	return nil
}

func (f *Field) haloIndex(side Side) int {
	if side == Top {
		return 0
	}
	return f.band.Rows() + 1
}

func (f *Field) copyRow(lr int) []float64 {
	out := make([]float64, f.cols)
	copy(out, f.row(lr))
	return out
}

// Owned returns a copy of the owned rows in global order.
func (f *Field) Owned() [][]float64 {
	rows := make([][]float64, f.band.Rows())
	for i := range rows {
		rows[i] = f.copyRow(i + 1)
	}
	return rows
}

// Randomize fills every owned site with an independent angle in [0, 2π).
func (f *Field) Randomize(rng *rand.Rand) {
	for lr := 1; lr <= f.band.Rows(); lr++ {
		r := f.row(lr)
		for c := range r {
			r[c] = rng.Float64() * 2 * math.Pi
		}
	}
}

// NewRNG returns the random stream for rank. Each rank draws from its own PCG
// stream keyed by (seed, rank), so partitions never share a sequence.
func NewRNG(seed int64, rank int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(rank)))
}
