package viz

import (
	"math"
	"strings"
)

// directorGlyphs cover [0, π) in four sectors centred on 0, π/4, π/2, 3π/4.
var directorGlyphs = []rune{'-', '/', '|', '\\'}

// Glyph maps an orientation to a line character. θ and θ+π look the same.
func Glyph(theta float64) rune {
	a := math.Mod(theta, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	sector := int(math.Floor(a/(math.Pi/4)+0.5)) % len(directorGlyphs)
	return directorGlyphs[sector]
}

// Director renders a lattice as one glyph per site. Lattices wider than
// maxCols are subsampled evenly in both directions.
func Director(lattice [][]float64, maxCols int) string {
	if len(lattice) == 0 {
		return ""
	}
	step := 1
	if maxCols > 0 && len(lattice[0]) > maxCols {
		step = (len(lattice[0]) + maxCols - 1) / maxCols
	}

	var b strings.Builder
	for i := 0; i < len(lattice); i += step {
		for j := 0; j < len(lattice[i]); j += step {
			b.WriteRune(Glyph(lattice[i][j]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
