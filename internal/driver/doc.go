// Package driver runs the sweep loop of one rank.
//
// Each sweep runs the same fixed sequence on every rank:
//
//  1. check for a stop request
//  2. halo exchange
//  3. Metropolis sweep at the scheduled temperature
//  4. every ReportEvery sweeps, and after the last one: a second halo
//     exchange, a measurement of the strip, and a reduction to the coordinator
//
// The second exchange means boundary energies are always measured against
// current neighbour rows. A run of zero sweeps measures and reduces the
// initial lattice once.
//
// Every rank must run a Driver with identical Params, since halo exchanges and
// reductions are matched by sequence number.
package driver
