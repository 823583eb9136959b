package comm

import (
	"context"
	"fmt"
)

// Kind separates the message streams that share a link.
type Kind uint8

const (
	KindHaloUp Kind = iota + 1
	KindHaloDown
	KindReduce
	KindGather
)

func (k Kind) String() string {
	switch k {
	case KindHaloUp:
		return "halo-up"
	case KindHaloDown:
		return "halo-down"
	case KindReduce:
		return "reduce"
	case KindGather:
		return "gather"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Tag identifies one message on a link: a stream kind plus a sequence number
// that every rank advances in lockstep.
type Tag struct {
	Kind Kind
	Seq  uint64
}

func (t Tag) String() string { return fmt.Sprintf("%s#%d", t.Kind, t.Seq) }

// Communicator is the message-passing handle of one rank.
type Communicator interface {
	Rank() int
	Size() int
	// Send delivers a copy of data to rank to. It may return before the
	// receiver has read it.
	Send(ctx context.Context, to int, tag Tag, data []float64) error
	// Recv blocks until the message with tag from rank from arrives and copies
	// it into dst, which must have exactly the sent length.
	Recv(ctx context.Context, from int, tag Tag, dst []float64) error
}
