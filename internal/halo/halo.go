// Package halo refreshes the halo rows of a lattice strip from the
// neighbouring ranks.
//
// Every exchange posts both sends before either receive. Sends on the
// transport are buffered and never wait for the receiver, so no rank can
// block another's send and the exchange cannot deadlock for any world size.
// With one rank both neighbours are the rank itself and the halos become
// copies of its own boundary rows, wrapped.
package halo

import (
	"context"
	"fmt"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/lattice"
)

// Exchanger owns the halo traffic of one rank.
type Exchanger struct {
	field *lattice.Field
	comm  comm.Communicator
	up    int
	down  int
	seq   uint64

	scratch []float64
}

func New(field *lattice.Field, c comm.Communicator) *Exchanger {
	return &Exchanger{
		field: field,
		comm:  c,
		up:    lattice.Up(c.Rank(), c.Size()),
		down:  lattice.Down(c.Rank(), c.Size()),

		scratch: make([]float64, field.Cols()),
	}
}

// Exchange sends the top owned row upward and the bottom owned row downward,
// then fills the top halo from the rank above and the bottom halo from the
// rank below. Every rank must call Exchange the same number of times.
func (x *Exchanger) Exchange(ctx context.Context) error {
	x.seq++
	toUp := comm.Tag{Kind: comm.KindHaloUp, Seq: x.seq}
	toDown := comm.Tag{Kind: comm.KindHaloDown, Seq: x.seq}

	if err := x.comm.Send(ctx, x.up, toUp, x.field.Boundary(lattice.Top)); err != nil {
		return fmt.Errorf("halo exchange %d: %w", x.seq, err)
	}
	if err := x.comm.Send(ctx, x.down, toDown, x.field.Boundary(lattice.Bottom)); err != nil {
		return fmt.Errorf("halo exchange %d: %w", x.seq, err)
	}

	// The rank above sent its bottom row down to us; the rank below sent its
	// top row up.
	if err := x.receive(ctx, x.up, toDown, lattice.Top); err != nil {
		return err
	}
	return x.receive(ctx, x.down, toUp, lattice.Bottom)
}

func (x *Exchanger) receive(ctx context.Context, from int, tag comm.Tag, side lattice.Side) error {
	if err := x.comm.Recv(ctx, from, tag, x.scratch); err != nil {
		return fmt.Errorf("halo exchange %d: %w", x.seq, err)
	}
	return x.field.SetHalo(side, x.scratch)
}

// Exchanges is the number of completed or attempted exchanges.
func (x *Exchanger) Exchanges() uint64 { return x.seq }
