package energy

import "github.com/san-kum/nemsim/internal/lattice"

// Reference sums the pair potential over the four neighbours in the fixed
// order up, down, left, right.
type Reference struct{}

func NewReference() *Reference { return &Reference{} }

func (Reference) Name() string    { return "reference" }
func (Reference) Available() bool { return true }

func (Reference) SiteEnergy(f *lattice.Field, row, col int, angle float64) float64 {
	en := 0.0
	for _, nb := range neighbours(f, row, col) {
		en += PairEnergy(angle, nb)
	}
	return en
}

func (r Reference) Delta(f *lattice.Field, row, col int, oldAngle, newAngle float64) float64 {
	return r.SiteEnergy(f, row, col, newAngle) - r.SiteEnergy(f, row, col, oldAngle)
}
