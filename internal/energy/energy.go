package energy

import (
	"math"

	"github.com/san-kum/nemsim/internal/lattice"
)

// Epsilon is the coupling constant in reduced units.
const Epsilon = 1.0

// Backend computes site energies for one strip.
type Backend interface {
	Name() string
	Available() bool
	// SiteEnergy is the energy of site (row, col) if it held angle, given its
	// current neighbours.
	SiteEnergy(f *lattice.Field, row, col int, angle float64) float64
	// Delta is SiteEnergy(newAngle) - SiteEnergy(oldAngle).
	Delta(f *lattice.Field, row, col int, oldAngle, newAngle float64) float64
}

// PairEnergy is the Lebwohl–Lasher interaction between two orientations.
func PairEnergy(a, b float64) float64 {
	c := math.Cos(a - b)
	return -Epsilon * (3*c*c - 1) / 2
}

// LocalEnergy is the energy of site (row, col) at its current angle.
func LocalEnergy(b Backend, f *lattice.Field, row, col int) float64 {
	return b.SiteEnergy(f, row, col, f.At(row, col))
}

// neighbours returns the up, down, left and right angles of a site.
func neighbours(f *lattice.Field, row, col int) [4]float64 {
	n := f.Cols()
	return [4]float64{
		f.At(row-1, col),
		f.At(row+1, col),
		f.At(row, (col-1+n)%n),
		f.At(row, (col+1)%n),
	}
}
