// Package lattice holds one rank's share of a periodic L×L orientation lattice.
//
// The global lattice is split into contiguous row bands, one per rank:
//
//   - [Partition] computes the bands; sizes differ by at most one row and the
//     remainder goes to the lowest ranks.
//   - [Field] stores the rank's owned rows plus two halo rows mirroring the
//     neighbouring bands.
//
// Local row indices run from 1 to Rows() inclusive. Row 0 is the halo above
// the band and row Rows()+1 the halo below it. Halo rows can only be replaced
// wholesale through [Field.SetHalo]; [Field.Set] rejects them.
//
// # Thread Safety
//
// A Field belongs to a single rank and is not safe for concurrent use.
package lattice
