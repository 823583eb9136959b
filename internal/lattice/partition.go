package lattice

import "fmt"

// Band is the half-open global row range [Start, End) owned by one rank.
type Band struct {
	Rank  int
	Start int
	End   int
}

func (b Band) Rows() int { return b.End - b.Start }

func (b Band) Contains(row int) bool { return row >= b.Start && row < b.End }

// Partition splits L rows across size ranks. The first L mod size ranks get one
// extra row, so no two bands differ by more than one row.
func Partition(l, size int) ([]Band, error) {
	if l <= 0 {
		return nil, fmt.Errorf("%w: lattice size %d", ErrBadPartition, l)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: process count %d", ErrBadPartition, size)
	}
	if size > l {
		return nil, fmt.Errorf("%w: %d processes for %d rows leaves a rank without rows", ErrBadPartition, size, l)
	}

	bands := make([]Band, size)
	for r := 0; r < size; r++ {
		bands[r] = bandFor(l, size, r)
	}
	return bands, nil
}

// BandFor returns the band owned by rank without materialising the others.
func BandFor(l, size, rank int) (Band, error) {
	if rank < 0 || rank >= size {
		return Band{}, fmt.Errorf("%w: rank %d outside [0,%d)", ErrBadPartition, rank, size)
	}
	if _, err := Partition(l, size); err != nil {
		return Band{}, err
	}
	return bandFor(l, size, rank), nil
}

func bandFor(l, size, rank int) Band {
	base := l / size
	extra := l % size

	start := rank*base + min(rank, extra)
	rows := base
	if rank < extra {
		rows++
	}
	return Band{Rank: rank, Start: start, End: start + rows}
}

// Up is the rank owning the rows above rank, wrapping to the last rank.
func Up(rank, size int) int { return (rank - 1 + size) % size }

// Down is the rank owning the rows below rank, wrapping to rank 0.
func Down(rank, size int) int { return (rank + 1) % size }
