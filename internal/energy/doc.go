// Package energy evaluates the Lebwohl–Lasher Hamiltonian on a lattice strip.
//
// A site interacts with its four nearest neighbours through
//
//	U(θi, θj) = -ε (3 cos²(θi - θj) - 1) / 2
//
// Left and right neighbours wrap within the row. Up and down neighbours on the
// first and last owned rows come from the halo rows, so the result equals what
// a single rank holding the whole lattice would compute.
//
// Two interchangeable backends are provided:
//
//   - "reference": evaluates the pair potential term by term.
//   - "fast": uses the double-angle form and shares the neighbour sums between
//     the old and new angle when computing a Metropolis delta.
//
// Backends are looked up by name through a [Registry].
package energy
