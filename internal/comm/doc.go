// Package comm provides point-to-point and collective message passing between
// ranks.
//
// [Communicator] is the transport contract the simulation core needs: a rank,
// a world size, and tagged sends and receives of float64 buffers. Payloads are
// always copied, so a receiver never aliases the sender's memory.
//
// [Mesh] implements the contract in-process, with one buffered channel per
// ordered pair of ranks. Sends only block when a link buffer is full. A receive
// for one tag parks any other tags it reads from the same source, so the order
// in which peers send never matters.
//
// [ReduceSum] and [Gather] are collectives built on top of any Communicator.
// The root combines contributions in rank order, so the result does not depend
// on which peer answered first.
package comm
